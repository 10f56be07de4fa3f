// Package config provides configuration parsing for the locsync server.
//
// The configuration is stored in locsync.json. This package handles loading,
// saving, defaulting and validating it. Durations are Go duration strings.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "shutdownTimeout": "30s",
//	    "allowedOrigins": ["https://app.example.com"]
//	  },
//	  "session": {
//	    "readTimeout": "60s",
//	    "heartbeatInterval": "30s",
//	    "maxSessions": 10000
//	  },
//	  "history": "push",
//	  "metrics": { "enabled": true, "path": "/metrics" },
//	  "tracing": { "enabled": false },
//	  "journal": { "backend": "s3", "bucket": "my-bucket", "prefix": "locsync/" },
//	  "log": { "level": "info", "format": "json" }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFile("locsync.json")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println("Listening on", cfg.Address())
package config
