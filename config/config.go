/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads worker settings from a .env file, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/contentguard/classifier"
	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/filter"
	"github.com/suparena/contentguard/ledger"
)

// FileEnv names the YAML file to load, if any.
const FileEnv = "CONTENTGUARD_CONFIG"

// Config holds every runtime setting.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	MediaPrefix string   `yaml:"mediaPrefix"`
	Threshold   string   `yaml:"threshold"`
	Categories  []string `yaml:"categories"`

	ClassifyTimeout time.Duration `yaml:"classifyTimeout"`
	StorageTimeout  time.Duration `yaml:"storageTimeout"`

	LedgerTable string        `yaml:"ledgerTable"`
	ClaimTTL    time.Duration `yaml:"claimTTL"`

	AWS AWS `yaml:"aws"`
}

// AWS configures the shared AWS clients. Empty keys fall back to the
// ambient credential chain.
type AWS struct {
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"accessKey"`
	SecretKey   string `yaml:"secretKey"`
	EndpointURL string `yaml:"endpointURL"`
	S3PathStyle bool   `yaml:"s3PathStyle"`
}

// Default returns the built-in settings.
func Default() Config {
	cats := make([]string, len(classifier.DefaultCategories))
	for i, c := range classifier.DefaultCategories {
		cats[i] = string(c)
	}
	return Config{
		Port:            8080,
		LogLevel:        "info",
		MediaPrefix:     filter.DefaultMediaPrefix,
		Threshold:       classifier.DefaultThreshold.String(),
		Categories:      cats,
		ClassifyTimeout: classifier.DefaultTimeout,
		StorageTimeout:  10 * time.Second,
		ClaimTTL:        ledger.DefaultClaimTTL,
	}
}

// Load reads .env from the working directory when present, then the file
// named by CONTENTGUARD_CONFIG, then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return cgerrors.NewValidationError(key, fmt.Sprintf("invalid duration %q", v))
		}
		*dst = d
		return nil
	}

	str("HOST", &c.Host)
	str("LOG_LEVEL", &c.LogLevel)
	str("CONTENTGUARD_MEDIA_PREFIX", &c.MediaPrefix)
	str("CONTENTGUARD_THRESHOLD", &c.Threshold)
	str("CONTENTGUARD_LEDGER_TABLE", &c.LedgerTable)
	str("AWS_REGION", &c.AWS.Region)
	str("AWS_ACCESS_KEY", &c.AWS.AccessKey)
	str("AWS_SECRET_KEY", &c.AWS.SecretKey)
	str("AWS_ENDPOINT_URL", &c.AWS.EndpointURL)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cgerrors.NewValidationError("PORT", fmt.Sprintf("invalid port %q", v))
		}
		c.Port = port
	}
	if v, ok := lookup("CONTENTGUARD_CATEGORIES"); ok && v != "" {
		c.Categories = strings.Split(v, ",")
	}
	if v, ok := lookup("CONTENTGUARD_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cgerrors.NewValidationError("CONTENTGUARD_S3_PATH_STYLE", fmt.Sprintf("invalid bool %q", v))
		}
		c.AWS.S3PathStyle = b
	}

	for key, dst := range map[string]*time.Duration{
		"CONTENTGUARD_CLASSIFY_TIMEOUT": &c.ClassifyTimeout,
		"CONTENTGUARD_STORAGE_TIMEOUT":  &c.StorageTimeout,
		"CONTENTGUARD_CLAIM_TTL":        &c.ClaimTTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings the worker cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return cgerrors.NewValidationError("port", fmt.Sprintf("out of range: %d", c.Port))
	}
	if c.MediaPrefix == "" {
		return cgerrors.NewValidationError("mediaPrefix", "must not be empty")
	}
	if c.ClassifyTimeout <= 0 {
		return cgerrors.NewValidationError("classifyTimeout", "must be positive")
	}
	if c.StorageTimeout <= 0 {
		return cgerrors.NewValidationError("storageTimeout", "must be positive")
	}
	if c.ClaimTTL <= 0 {
		return cgerrors.NewValidationError("claimTTL", "must be positive")
	}
	if (c.AWS.AccessKey == "") != (c.AWS.SecretKey == "") {
		return cgerrors.NewValidationError("aws", "access key and secret key must be set together")
	}
	_, err := c.Policy()
	return err
}

// Policy builds the classifier policy from Threshold and Categories.
func (c *Config) Policy() (classifier.Policy, error) {
	threshold, err := classifier.ParseLikelihood(c.Threshold)
	if err != nil {
		return classifier.Policy{}, err
	}
	cats, err := classifier.ParseCategories(strings.Join(c.Categories, ","))
	if err != nil {
		return classifier.Policy{}, err
	}
	for _, c := range cats {
		if !classifier.Scored(c) {
			return classifier.Policy{}, cgerrors.NewValidationError("categories", fmt.Sprintf("%q is not scored by the classifier", c))
		}
	}
	p := classifier.Policy{Threshold: threshold, Categories: cats}
	if err := p.Validate(); err != nil {
		return classifier.Policy{}, err
	}
	return p, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LedgerEnabled reports whether a ledger table is configured.
func (c *Config) LedgerEnabled() bool {
	return c.LedgerTable != ""
}
