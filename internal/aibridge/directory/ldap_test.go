package directory

import (
	"testing"

	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/stretchr/testify/assert"
)

func TestEntryFirst(t *testing.T) {
	entry := Entry{
		DN: "uid=alice,dc=example,dc=com",
		Attrs: map[string][]string{
			"uid":  {"alice"},
			"mail": {"a@x.com", "alice@x.com"},
		},
	}

	assert.Equal(t, "alice", entry.First("uid"))
	assert.Equal(t, "a@x.com", entry.First("mail"))
	assert.Equal(t, "", entry.First("cn"))
}

func TestIdentityFilter(t *testing.T) {
	config := &dao.LdapConfig{
		UserFilter:         "(objectClass=inetOrgPerson)",
		UserIdAttribute:    "uid",
		UserEmailAttribute: "mail",
	}

	filter := IdentityFilter(config, "alice")
	assert.Equal(t, "(&(objectClass=inetOrgPerson)(|(uid=alice)(mail=alice)))", filter)
}

func TestIdentityFilterDefaults(t *testing.T) {
	filter := IdentityFilter(&dao.LdapConfig{}, "alice")
	assert.Equal(t, "(&(objectClass=person)(|(uid=alice)(mail=alice)))", filter)
}

func TestIdentityFilterEscapesInjection(t *testing.T) {
	config := &dao.LdapConfig{}

	filter := IdentityFilter(config, "*)(uid=*")
	assert.NotContains(t, filter, "(uid=*)")
	assert.Contains(t, filter, `\2a\29\28uid=\2a`)
}
