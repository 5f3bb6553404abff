// Package config loads typed configuration from the environment.
//
// Each component owns a struct with env / envDefault tags (see
// github.com/caarlos0/env/v11). Load parses one such struct and caches it by
// type, so repeated calls are cheap:
//
//	cfg, err := config.Load[pg.Config]()
//	if err != nil {
//		return err
//	}
//
// Before the first Load the default ./.env file is applied through
// github.com/joho/godotenv if present. Call LoadEnv with explicit paths first
// to use other files. Reset clears the cache, which tests use together with
// t.Setenv.
package config
