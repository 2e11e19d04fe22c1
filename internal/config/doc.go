// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so credentials can stay out of the file:
//
//	server:
//	  url: http://localhost:8090
//	  instance: simulator
//	  password: ${YAMCS_PASSWORD}
package config
