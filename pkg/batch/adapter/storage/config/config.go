// Package config holds the per-backend storage settings decoded from surfin.adaptor.storage.
package config

// StorageConfig describes one storage backend.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local" or "gcs"
	BucketName      string `yaml:"bucket_name"`      // default bucket (a sub-directory for local)
	CredentialsFile string `yaml:"credentials_file"` // GCS service account key; empty uses ADC
	BaseDir         string `yaml:"base_dir"`         // root directory for local
	Endpoint        string `yaml:"endpoint"`         // GCS endpoint override, e.g. an emulator
}
