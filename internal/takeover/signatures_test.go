package takeover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignaturesTableIsUnambiguous(t *testing.T) {
	assert.NoError(t, validateSignatures(serviceSignatures))
	assert.NotPanics(t, func() { Signatures() })
}

func TestValidateSignaturesRejectsOverlap(t *testing.T) {
	bad := []ServiceSignature{
		{Service: "A", CNAMEMarkers: []string{"pages.example.net"}},
		{Service: "B", CNAMEMarkers: []string{"example.net"}},
	}
	err := validateSignatures(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping CNAME markers")
}

func TestMatchSignature(t *testing.T) {
	sigs := Signatures()

	tests := []struct {
		name    string
		cname   string
		service string
		matched bool
	}{
		{"heroku app", "foo.herokuapp.com", "Heroku", true},
		{"heroku dns", "bar.herokudns.com", "Heroku", true},
		{"github pages", "someuser.github.io", "GitHub Pages", true},
		{"case insensitive", "Foo.HerokuApp.COM", "Heroku", true},
		{"azure blob", "store.blob.core.windows.net", "Microsoft Azure", true},
		{"s3 website", "bucket.s3-website-eu-west-1.amazonaws.com", "Amazon S3", true},
		{"sendgrid", "u1234.wl.sendgrid.net", "SendGrid", true},
		{"unrelated host", "lb-17.internal.example.org", "", false},
		{"empty target", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := matchSignature(tt.cname, sigs)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.service, sig.Service)
		})
	}
}

func TestMatchSignatureFirstMatchWins(t *testing.T) {
	// Deliberately ambiguous table: matching must report the earlier entry.
	sigs := []ServiceSignature{
		{Service: "First", CNAMEMarkers: []string{"dangling.example"}},
		{Service: "Second", CNAMEMarkers: []string{"dangling.example"}},
	}
	sig, ok := matchSignature("app.dangling.example", sigs)
	assert.True(t, ok)
	assert.Equal(t, "First", sig.Service)
}
