package upstream

import (
	"context"
	"net/http"
	"testing"
)

func Benchmark_Descriptor_Target(b *testing.B) {
	d := NewGet("/r/golang/hot").WithQuery("limit", "25")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.target("https://oauth.reddit.com")
	}
}

func Benchmark_Builder_Build(b *testing.B) {
	builder := NewBuilder("https://oauth.reddit.com", "https://www.reddit.com")
	cred := testCredential()
	d := NewGet("/r/golang/hot")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(ctx, d, cred); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Budget_SpendObserve(b *testing.B) {
	budget := NewBudget()
	h := http.Header{}
	h.Set("x-ratelimit-remaining", "57.0")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		budget.Spend()
		budget.Observe(h)
	}
}

func Benchmark_ParseEnvelope(b *testing.B) {
	body := []byte(`{"reason":"private","message":"Forbidden","error":403}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = parseEnvelope(body)
	}
}
