// Package config loads and saves the sak configuration file.
//
// The configuration lives in ~/.config/sak/config.yaml; the directory can be
// moved with the SAK_CONFIG_PATH environment variable. A missing file is not
// an error and yields an empty configuration.
//
// # Example
//
//	default-provider: graph
//	providers:
//	  - name: graph
//	    grant-type: authorization-code
//	    client-id: 00000000-0000-0000-0000-000000000000
//	    scopes: [User.Read, Mail.Read, Calendars.Read, offline_access]
//	    refresh: true
//	  - name: mimecast
//	    grant-type: client-credentials
//	    base-url: https://api.services.mimecast.com
//	    client-id: my-app-id
//	    client-secret-env: MIMECAST_APP_KEY
//
// Authorization-code providers default to the Microsoft identity platform
// endpoints unless authority (OIDC discovery) or explicit authorize-url and
// token-url are set. See ProviderConfig.WithDefaults.
//
// SaveConfig validates before writing and replaces the file atomically with
// mode 0600, since it may contain client secrets.
package config
