// Package config loads the service settings from a .env file and the
// environment.
//
// godotenv fills the environment from .env, viper binds every variable to
// its default and decodes them into Settings, and validator checks the
// enumerated values. Retry bounds are floored rather than rejected: retries
// below 0 become 0, a base delay below 0.1s becomes 0.1s and a max delay
// below the base becomes the base.
package config
