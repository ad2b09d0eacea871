package mqtt

import (
	"github.com/mochi-mqtt/server/v2/hooks/auth"
)

// BrokerCredentials identify the server's own client on the embedded broker.
type BrokerCredentials struct {
	ClientID string
	Username string
	Password string
}

// BrokerLedger is the embedded broker's access list. Only the server client
// may write database values and owner alerts; devices may write their own
// readings; everyone may read. When a password is set, a client claiming the
// server id without it is refused.
func BrokerLedger(c BrokerCredentials) *auth.Ledger {
	server := auth.RString(c.ClientID)

	rules := auth.AuthRules{}
	if c.Password != "" {
		rules = append(rules,
			auth.AuthRule{Client: server, Username: auth.RString(c.Username), Password: auth.RString(c.Password), Allow: true},
			auth.AuthRule{Client: server, Allow: false},
		)
	}

	rules = append(rules, auth.AuthRule{Remote: "*", Allow: true})

	return &auth.Ledger{
		Auth: rules,
		ACL: auth.ACLRules{
			{
				Client: server,
				Filters: auth.Filters{
					"rtdb/#":   auth.ReadWrite,
					"owners/#": auth.ReadWrite,
				},
			},
			{
				Remote: "*",
				Filters: auth.Filters{
					"devices/+/telemetry": auth.ReadWrite,
					"devices/+/summary":   auth.ReadWrite,
					"#":                   auth.ReadOnly,
				},
			},
		},
	}
}
