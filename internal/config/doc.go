// Package config loads counterviz settings.
//
// Values are resolved in this order, later sources winning:
//
//  1. Default()
//  2. a YAML file named by COUNTERVIZ_CONFIG, or config.yaml / configs/config.yaml
//  3. COUNTERVIZ_* environment variables
//
// Environment variable names follow the struct nesting, for example
// COUNTERVIZ_SERVER_PORT, COUNTERVIZ_ANALYSIS_FULL_YEAR_DAYS and
// COUNTERVIZ_STORAGE_S3_BUCKET.
package config
