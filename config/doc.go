// Package config loads service configuration with Viper.
//
// Values come from config.yml, then from a .env file loaded into the process
// environment, then from environment variables bound onto nested keys:
//
//	SERVER_PORT=8080          -> server.port
//	JOBS_MAX_CONCURRENT=2     -> jobs.max_concurrent
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("diarscribe", &cfg)
package config
