package web

import "github.com/teradata/watchface/internal/config"

// ServerConfig contains settings for running the HTTP server.
//
// The intended defaults differ per binary:
// - real device: :80
// - simulator:   :8080
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
}

func ServerConfigFrom(cfg config.Config) ServerConfig {
	return ServerConfig{ListenAddr: cfg.ListenAddr, DevMode: cfg.DevMode}
}
