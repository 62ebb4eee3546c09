package types

import "time"

// Config is the top-level configuration structure
type Config struct {
	Debug   bool          `yaml:"debug"`
	Kaggle  KaggleConfig  `yaml:"kaggle"`
	Storage StorageConfig `yaml:"storage"`
	Extract ExtractConfig `yaml:"extract"`
	Aliases AliasConfig   `yaml:"aliases"`

	// Mirror is optional; nil disables the S3 archive mirror
	Mirror *MirrorConfig `yaml:"mirror,omitempty"`
}

// KaggleConfig describes how the Kaggle CLI is invoked
type KaggleConfig struct {
	Binary  string            `yaml:"binary"`   // Executable name or path
	WorkDir string            `yaml:"work_dir"` // Directory the CLI runs in (default: process working directory)
	Env     map[string]string `yaml:"env"`      // Extra environment, e.g. KAGGLE_CONFIG_DIR
}

// StorageConfig holds the local cache layout
type StorageConfig struct {
	Root   string `yaml:"root"`   // Storage root; empty means <project root>/data
	Marker string `yaml:"marker"` // Marker searched upward to find the project root
}

// ExtractConfig holds archive extraction settings
type ExtractConfig struct {
	RateLimit Bytes `yaml:"rate_limit"` // Bytes per second written during extraction (0 = unlimited)
	Progress  bool  `yaml:"progress"`   // Render a progress bar while extracting
}

// AliasConfig maps short local names to remote slugs, one table per kind
type AliasConfig struct {
	Competitions map[string]string `yaml:"competitions"`
	Datasets     map[string]string `yaml:"datasets"`
}

// For returns the alias table for kind.
func (a AliasConfig) For(kind Kind) map[string]string {
	if kind == KindDataset {
		return a.Datasets
	}
	return a.Competitions
}

// MirrorConfig configures the S3 archive mirror
type MirrorConfig struct {
	Bucket   string        `yaml:"bucket"`
	Prefix   string        `yaml:"prefix"`
	Region   string        `yaml:"region"`
	Profile  string        `yaml:"profile"`
	Endpoint string        `yaml:"endpoint,omitempty"` // S3-compatible endpoint, e.g. MinIO
	Timeout  time.Duration `yaml:"timeout,omitempty"`  // Per-request timeout (0 = none)
}

// Enabled reports whether the mirror has a bucket to talk to.
func (m *MirrorConfig) Enabled() bool {
	return m != nil && m.Bucket != ""
}

// DefaultCompetitionAliases are the built-in competition aliases.
func DefaultCompetitionAliases() map[string]string {
	return map[string]string{
		"bike_sharing":                       "bike-sharing-demand",
		"breast_cancer_detection_rsna":       "rsna-breast-cancer-detection",
		"facial_keypoints_detection":         "facial-keypoints-detection",
		"getting_started_with_gans":          "gan-getting-started",
		"icecube_detector_neutrinos":         "icecube-neutrinos-in-deep-ice",
		"survey_studies":                     "kaggle-survey-2022",
		"transfer_learning_food_recognition": "transfer-learning-on-food-recognition",
	}
}

// DefaultDatasetAliases are the built-in dataset aliases, the most voted
// datasets at the time they were added.
func DefaultDatasetAliases() map[string]string {
	return map[string]string{
		"covid_dataset":             "allen-institute-for-ai/CORD-19-research-challenge",
		"nfl_dataset":               "maxhorowitz/nflplaybyplay2009to2016",
		"cityscapes_train_val_test": "chrisviviers/cityscapes-leftimg8bit-trainvaltest",
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Kaggle: KaggleConfig{
			Binary: "kaggle",
			Env:    make(map[string]string),
		},
		Storage: StorageConfig{
			Marker: ".git",
		},
		Extract: ExtractConfig{
			RateLimit: Bytes(0), // Unlimited
		},
		Aliases: AliasConfig{
			Competitions: DefaultCompetitionAliases(),
			Datasets:     DefaultDatasetAliases(),
		},
	}
}
