// Package fingerprint models the mobile client identity redveil presents
// to Reddit: the OAuth client id, the app and Android version pool, and the
// randomized per-device headers.
//
// A Spec describes the pool of plausible identities. The compiled-in
// DefaultSpec tracks the official Android app; operators can override it
// with a YAML file so detection changes can be chased without a rebuild,
// optionally hot-reloaded via Provider.Watch.
//
// A Device is one concrete identity drawn from the Spec: a stable UUID,
// a user agent, and the accompanying headers. redveil generates one Device
// per process and keeps it for the process lifetime, so the instance looks
// like a single installed app rather than a churn of new installs.
package fingerprint
