// Package config defines the per-job upscaling settings, the catalog of
// Real-ESRGAN models, and the viper-backed loader that reads them from the
// user's settings file and environment.
package config
