// Package config loads the runtime settings shared by the warehouse CLI and
// the submission pipeline: backend endpoints, upload credentials, and the
// per-deployment behaviour switches.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

const (
	defaultUploadEndpoint  = "https://impora-hausnotruf.de/wp-json/wc/v3/app-api/upload-image"
	defaultWebhookEndpoint = "https://hook.eu1.make.com/iwhcukw7w37ttjaa8c02oikgyo3wsh16"
	defaultIntakeEndpoint  = "https://hook.eu1.make.com/adlse6tyzwpvs1cv356xmxyfm7hvbicq"

	defaultTimeoutSeconds = 30
	defaultConfirmDelayMS = 300
	defaultPackagingWay   = "picture-box"
)

// Endpoints names the three fixed backend URLs the pipeline talks to.
type Endpoints struct {
	ImageUpload   string `json:"image_upload"`
	Webhook       string `json:"webhook"`
	IntakeWebhook string `json:"intake_webhook"`
}

// Credentials is the Basic-auth pair required by the image-upload endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validation carries the switches for rules that drifted between app revisions.
type Validation struct {
	// RequireQRWithIMEI restores the early-revision rule that the IMEI form
	// also needs a QR code. Pending product-owner confirmation; the later
	// revision (the default) requires only the IMEI.
	RequireQRWithIMEI bool `json:"require_qr_with_imei"`
}

// Payload holds backend-contract strings that vary per target deployment.
type Payload struct {
	// PackagingWay is the "way" value sent for packaging-photo submissions.
	// Older backends expect the historical misspelling "picutre-box".
	PackagingWay string `json:"packaging_way"`
}

// Config represents the combined runtime settings parsed from config.json.
type Config struct {
	Endpoints      Endpoints   `json:"endpoints"`
	Credentials    Credentials `json:"credentials"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	ConfirmDelayMS int         `json:"confirm_delay_ms"`
	Validation     Validation  `json:"validation"`
	Payload        Payload     `json:"payload"`
}

// Timeout returns the HTTP client timeout for all outbound calls.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConfirmDelay returns the pause between closing a covering panel and showing
// the intake success confirmation.
func (c Config) ConfirmDelay() time.Duration {
	return time.Duration(c.ConfirmDelayMS) * time.Millisecond
}

// Default returns the production settings compiled into the app.
func Default() Config {
	return applyDefaults(Config{})
}

// Load reads the JSON config at the given path and fills in defaults for any
// setting the file leaves empty.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return applyDefaults(cfg), nil
}

// MustLoad is Load for program start-up: any error is fatal.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func applyDefaults(cfg Config) Config {
	if cfg.Endpoints.ImageUpload == "" {
		cfg.Endpoints.ImageUpload = defaultUploadEndpoint
	}
	if cfg.Endpoints.Webhook == "" {
		cfg.Endpoints.Webhook = defaultWebhookEndpoint
	}
	if cfg.Endpoints.IntakeWebhook == "" {
		cfg.Endpoints.IntakeWebhook = defaultIntakeEndpoint
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.ConfirmDelayMS <= 0 {
		cfg.ConfirmDelayMS = defaultConfirmDelayMS
	}
	if cfg.Payload.PackagingWay == "" {
		cfg.Payload.PackagingWay = defaultPackagingWay
	}
	return cfg
}
