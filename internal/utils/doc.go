// Package utils exposes reusable helpers consumed by the command line.
//
// ConfigurationLoader layers defaults, embedded configuration, configuration
// files, and environment variables through Viper. LoggerFactory builds zap
// loggers for diagnostic output.
package utils
