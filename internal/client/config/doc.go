// Package config loads runtime configuration for the trainctl CLI.
//
// Sources, later ones win:
//
//  1. Built-in defaults, see (*Config).LoadDefaults.
//  2. An optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Flags
//
//	-a string   API root URL (http or https)
//	-s string   session database file
//	-t int      request timeout in seconds
//	-p string   comma separated privileged subjects
//	-r int      progress stream dial attempts, 1 disables retry
//	-l string   log file, rotated; stderr when empty
//	-d          debug logging
//
// # JSON schema
//
//	{
//	  "server_url": "https://train.example.com",
//	  "progress_path": "/ws/progress",
//	  "store_path": "/home/me/.trainctl/session.db",
//	  "request_timeout": "10s",
//	  "privileged_subjects": ["admin@example.com"],
//	  "dial_attempts": 3,
//	  "dial_backoff": "500ms",
//	  "log_file": "/var/log/trainctl.log",
//	  "log_max_size_mb": 10,
//	  "debug": false,
//	  "s3": {"region": "eu-central-1", "endpoint": "http://minio:9000", "use_path_style": true}
//	}
//
// Environment variables are not read here; the AWS SDK still honours its
// own when the S3 section leaves credentials empty.
package config
