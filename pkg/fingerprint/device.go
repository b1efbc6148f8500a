package fingerprint

import (
	"fmt"
	"math/rand/v2"
	"net/http"

	"github.com/google/uuid"
)

// Device is one concrete client identity drawn from a Spec. The ID doubles
// as both the vendor id and device id Reddit tracks per install, so a Device
// must stay stable for as long as the instance wants to look like the same
// install.
type Device struct {
	// ID is the install UUID, sent as both the vendor and device id.
	ID string

	// UserAgent identifies the app build and Android version.
	UserAgent string

	headers http.Header
}

// NewDevice draws a random identity from the spec.
func NewDevice(spec *Spec) *Device {
	id := uuid.NewString()

	appVersion := spec.AppVersions[rand.IntN(len(spec.AppVersions))]
	androidVersion := spec.AndroidVersionMin + rand.IntN(spec.AndroidVersionMax-spec.AndroidVersionMin+1)
	userAgent := fmt.Sprintf("Reddit/%s/Android %d", appVersion, androidVersion)

	// Quality-of-service telemetry the app reports, 1.000 to 100.000 with
	// three decimals.
	qos := fmt.Sprintf("%.3f", float64(1000+rand.IntN(99001))/1000)

	codecs := spec.CodecVariants[rand.IntN(len(spec.CodecVariants))]

	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("X-Reddit-Retry", "algo=no-retries")
	h.Set("X-Reddit-Compression", "1")
	h.Set("X-Reddit-Qos", qos)
	h.Set("X-Reddit-Media-Codecs", codecs)
	h.Set("Content-Type", "application/json; charset=UTF-8")
	h.Set("Client-Vendor-Id", id)
	h.Set("X-Reddit-Device-Id", id)

	return &Device{
		ID:        id,
		UserAgent: userAgent,
		headers:   h,
	}
}

// Headers returns a copy of the device identity headers. Callers may modify
// the returned header set freely.
func (d *Device) Headers() http.Header {
	return d.headers.Clone()
}

// Apply stamps the device identity onto an outbound request without
// overwriting headers the caller already set.
func (d *Device) Apply(req *http.Request) {
	for name, values := range d.headers {
		if req.Header.Get(name) != "" {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
}
