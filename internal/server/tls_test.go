// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/go-auth-service/internal/config"
)

func tlsConfig(host, mode, certDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: host, Port: 8080},
		TLS:    config.TLSConfig{Mode: mode, CertDir: certDir},
	}
}

func TestSetupTLS_AutoIsOffForLocalhost(t *testing.T) {
	result, err := SetupTLS(tlsConfig("localhost", "auto", t.TempDir()))

	require.NoError(t, err)
	assert.Equal(t, TLSModeOff, result.Mode)
	assert.Nil(t, result.TLSConfig)
}

func TestSetupTLS_ExplicitOff(t *testing.T) {
	result, err := SetupTLS(tlsConfig("auth.example.com", "off", t.TempDir()))

	require.NoError(t, err)
	assert.Equal(t, TLSModeOff, result.Mode)
}

func TestSetupTLS_SelfSignedGeneratesAndReusesCert(t *testing.T) {
	certDir := t.TempDir()
	cfg := tlsConfig("auth.example.com", "selfsigned", certDir)

	result, err := SetupTLS(cfg)
	require.NoError(t, err)
	assert.Equal(t, TLSModeSelfSigned, result.Mode)
	require.NotNil(t, result.TLSConfig)
	require.Len(t, result.TLSConfig.Certificates, 1)
	assert.FileExists(t, filepath.Join(certDir, "selfsigned", "cert.pem"))
	assert.FileExists(t, filepath.Join(certDir, "selfsigned", "key.pem"))

	// A second call picks up the existing certificate instead of minting a
	// new one.
	again, err := SetupTLS(cfg)
	require.NoError(t, err)
	require.Len(t, again.TLSConfig.Certificates, 1)
	assert.Equal(t,
		result.TLSConfig.Certificates[0].Certificate[0],
		again.TLSConfig.Certificates[0].Certificate[0])
}

func TestSetupTLS_ManualLoadsProvidedFiles(t *testing.T) {
	certDir := t.TempDir()
	_, err := SetupTLS(tlsConfig("auth.example.com", "selfsigned", certDir))
	require.NoError(t, err)

	cfg := tlsConfig("auth.example.com", "manual", certDir)
	cfg.TLS.CertFile = filepath.Join(certDir, "selfsigned", "cert.pem")
	cfg.TLS.KeyFile = filepath.Join(certDir, "selfsigned", "key.pem")

	result, err := SetupTLS(cfg)
	require.NoError(t, err)
	assert.Equal(t, TLSModeManual, result.Mode)
	require.NotNil(t, result.TLSConfig)
}

func TestSetupTLS_ManualMissingFiles(t *testing.T) {
	cfg := tlsConfig("auth.example.com", "manual", t.TempDir())
	cfg.TLS.CertFile = "/does/not/exist/cert.pem"
	cfg.TLS.KeyFile = "/does/not/exist/key.pem"

	_, err := SetupTLS(cfg)
	assert.Error(t, err)
}

func TestResolveTLSMode_ManualWhenCertFilesGiven(t *testing.T) {
	cfg := tlsConfig("auth.example.com", "auto", t.TempDir())
	cfg.TLS.CertFile = "cert.pem"
	cfg.TLS.KeyFile = "key.pem"

	assert.Equal(t, TLSModeManual, resolveTLSMode(cfg))
}
