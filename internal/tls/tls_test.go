package tls

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
)

func TestServerConfigSelfSigned(t *testing.T) {
	t.Parallel()

	cfg, err := ServerConfig("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Certificates) != 1 {
		t.Fatalf("certificates: got %d, want 1", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("min version: got %x, want TLS 1.2", cfg.MinVersion)
	}

	cert, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0])
	if err != nil {
		t.Fatalf("generated certificate does not parse: %v", err)
	}
	if cert.Subject.CommonName != "localhost" {
		t.Errorf("common name: got %q, want %q", cert.Subject.CommonName, "localhost")
	}

	if err := cert.VerifyHostname("localhost"); err != nil {
		t.Errorf("certificate should cover localhost: %v", err)
	}
	if err := cert.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("certificate should cover 127.0.0.1: %v", err)
	}
}

func TestServerConfigMissingFiles(t *testing.T) {
	t.Parallel()

	if _, err := ServerConfig("/nonexistent/cert.pem", "/nonexistent/key.pem"); err == nil {
		t.Fatal("expected error for missing key pair files")
	}
}
