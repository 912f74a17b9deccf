package sshenv

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"unicode"
)

const certAuthorityMarker = "@cert-authority"

// EnsureTrust makes sure the trust store has an entry for the session
// server. Caller-supplied material always wins and disables the
// probe-based derivation path entirely; it replaces any prior entry for
// the same host (never appends a second one).
//
// Without supplied material the server is probed once to populate the
// trust store, and a certificate-authority line is derived from every
// host key line found. Both steps are best-effort: on failure the run
// proceeds, merely less permissive about host verification.
func (configurator *Configurator) EnsureTrust(ctx context.Context, server string, supplied string) error {
	if supplied != "" {
		return configurator.replaceHostEntries(server, supplied)
	}

	if configurator.probe != nil {
		if err := configurator.probe(ctx, server); err != nil {
			configurator.logger.Warnf("failed to probe %s for its host key: %v", server, err)
		}
	}

	contents, err := os.ReadFile(configurator.KnownHostsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	authorityLines := deriveAuthorityLines(string(contents))
	if len(authorityLines) == 0 {
		configurator.logger.Warnf("no certificate-authority lines could be derived for %s", server)

		return nil
	}

	file, err := os.OpenFile(configurator.KnownHostsPath(), os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, line := range authorityLines {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return err
		}
	}

	return nil
}

// deriveAuthorityLines synthesizes one certificate-authority line per
// host key line. The second and third whitespace/comma-delimited fields
// are the key type and the key material; lines with fewer fields are
// skipped, as are lines that already carry an authority marker.
func deriveAuthorityLines(contents string) []string {
	var authorityLines []string

	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		if len(fields) < 3 {
			continue
		}

		authorityLines = append(authorityLines,
			fmt.Sprintf("%s * %s %s", certAuthorityMarker, fields[1], fields[2]))
	}

	return authorityLines
}

// replaceHostEntries removes any existing trust store entries for the
// given host and appends the supplied material: replace, not append, so
// that re-runs don't accumulate conflicting trust rules.
func (configurator *Configurator) replaceHostEntries(server string, supplied string) error {
	if err := os.MkdirAll(configurator.sshDir, 0700); err != nil {
		return err
	}

	host := serverHost(server)

	var kept []string

	contents, err := os.ReadFile(configurator.KnownHostsPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range strings.Split(string(contents), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if lineMatchesHost(line, host) {
			continue
		}

		kept = append(kept, line)
	}

	kept = append(kept, strings.TrimSpace(supplied))

	return os.WriteFile(configurator.KnownHostsPath(),
		[]byte(strings.Join(kept, "\n")+"\n"), 0600)
}

// lineMatchesHost reports whether a trust store line applies to the
// given host. The host field is the first one, or the second one on
// marker lines ("@cert-authority", "@revoked").
func lineMatchesHost(line string, host string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	hostField := fields[0]
	if strings.HasPrefix(hostField, "@") {
		if len(fields) < 2 {
			return false
		}

		hostField = fields[1]
	}

	for _, candidate := range strings.Split(hostField, ",") {
		// Hashed entries can't be matched by name, leave them alone
		if strings.HasPrefix(candidate, "|") {
			continue
		}

		if candidateHost, _, err := net.SplitHostPort(candidate); err == nil {
			candidate = candidateHost
		}

		candidate = strings.TrimPrefix(candidate, "[")
		candidate = strings.TrimSuffix(candidate, "]")

		if candidate == host {
			return true
		}
	}

	return false
}

// serverHost strips an optional ssh:// scheme and port from a session
// server address.
func serverHost(server string) string {
	server = strings.TrimPrefix(server, "ssh://")

	if host, _, err := net.SplitHostPort(server); err == nil {
		return host
	}

	return server
}
