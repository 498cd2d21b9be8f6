// Package config provides configuration parsing for the listdiff server
// and command.
//
// The configuration is stored in listdiff.json. Every field is optional:
//
//	{
//	  "server": {
//	    "addr": ":7070",
//	    "readTimeout": "10s",
//	    "writeTimeout": "10s",
//	    "ackTimeout": "30s",
//	    "maxDocumentBytes": 4194304,
//	    "allowedOrigins": ["https://app.example.com"]
//	  },
//	  "diff": {"crossSectionMoves": true, "verify": true},
//	  "metrics": {"enabled": true, "namespace": "listdiff", "path": "/metrics"},
//	  "tracing": {"enabled": true},
//	  "s3": {"region": "eu-west-1", "endpoint": "http://localhost:9000", "pathStyle": true}
//	}
//
// LISTDIFF_ADDR overrides server.addr.
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
