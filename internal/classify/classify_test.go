package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"/ping", KindHealthCheck},
		{"/images/logo.png", KindStaticAsset},
		{"/assets/app.js", KindStaticAsset},
		{"/static/css/main.css", KindStaticAsset},
		{"/favicon.ico", KindStaticAsset},
		{"/robots.txt", KindStaticAsset},
		{"/docs/readme.pdf", KindStaticAsset},
		{"/api/chat/123/messages", KindAPI},
		{"/api/v1/tiers", KindAPI},
		{"/api", KindAPI},
		{"/chat/123", KindPage},
		{"/", KindPage},
		{"/admin/tiers", KindPage},
		{"/pingpong", KindPage},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestBypassesPolicy(t *testing.T) {
	assert.True(t, KindHealthCheck.BypassesPolicy())
	assert.True(t, KindStaticAsset.BypassesPolicy())
	assert.False(t, KindAPI.BypassesPolicy())
	assert.False(t, KindPage.BypassesPolicy())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "health_check", KindHealthCheck.String())
	assert.Equal(t, "static_asset", KindStaticAsset.String())
	assert.Equal(t, "api", KindAPI.String())
	assert.Equal(t, "page", KindPage.String())
}
