package sshenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveAuthorityLines(t *testing.T) {
	var testCases = []struct {
		Name     string
		Contents string
		Expected []string
	}{
		{
			Name:     "single host key line",
			Contents: "example.upterm.dev ssh-ed25519 AAAAC3NzaC1lZDI1NTE5",
			Expected: []string{"@cert-authority * ssh-ed25519 AAAAC3NzaC1lZDI1NTE5"},
		},
		{
			Name:     "wildcard host",
			Contents: "* ssh-ed25519 AAAA...",
			Expected: []string{"@cert-authority * ssh-ed25519 AAAA..."},
		},
		{
			Name:     "comma-delimited fields count individually",
			Contents: "host1,host2 ssh-rsa BBBB",
			Expected: []string{"@cert-authority * host2 ssh-rsa"},
		},
		{
			Name:     "existing authority lines are not re-derived",
			Contents: "@cert-authority * ssh-ed25519 AAAA",
			Expected: nil,
		},
		{
			Name:     "lines with fewer than three fields are skipped",
			Contents: "gibberish\nexample.com ssh-rsa\n\n",
			Expected: nil,
		},
		{
			Name:     "one line per record",
			Contents: "a ssh-ed25519 KEY1\nb ssh-rsa KEY2",
			Expected: []string{
				"@cert-authority * ssh-ed25519 KEY1",
				"@cert-authority * ssh-rsa KEY2",
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.Name, func(t *testing.T) {
			assert.Equal(t, testCase.Expected, deriveAuthorityLines(testCase.Contents))
		})
	}
}

func TestLineMatchesHost(t *testing.T) {
	assert.True(t, lineMatchesHost("example.com ssh-rsa AAAA", "example.com"))
	assert.True(t, lineMatchesHost("other.com,example.com ssh-rsa AAAA", "example.com"))
	assert.True(t, lineMatchesHost("[example.com]:2222 ssh-rsa AAAA", "example.com"))
	assert.True(t, lineMatchesHost("@cert-authority example.com ssh-rsa AAAA", "example.com"))
	assert.False(t, lineMatchesHost("unrelated.com ssh-rsa AAAA", "example.com"))
	assert.False(t, lineMatchesHost("|1|hashed|entry ssh-rsa AAAA", "example.com"))
	assert.False(t, lineMatchesHost("", "example.com"))
}

func TestServerHost(t *testing.T) {
	assert.Equal(t, "example.upterm.dev", serverHost("example.upterm.dev:22"))
	assert.Equal(t, "example.upterm.dev", serverHost("ssh://example.upterm.dev:22"))
	assert.Equal(t, "example.upterm.dev", serverHost("example.upterm.dev"))

	assert.Equal(t, "22", serverPort("ssh://example.upterm.dev:22"))
	assert.Equal(t, "", serverPort("example.upterm.dev"))
}
