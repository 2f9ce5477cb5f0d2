package slackbot

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"orderbot/internal/domain"

	"github.com/slack-go/slack"
)

const userCacheTTL = 5 * time.Minute

type cachedName struct {
	name      string
	fetchedAt time.Time
}

// IdentityResolver maps user ids to display names. Lookup failures are
// cosmetic: the raw id is returned and nothing is cached.
type IdentityResolver struct {
	api *slack.Client
	ttl time.Duration

	mu    sync.Mutex
	cache map[string]cachedName
}

func NewIdentityResolver(api *slack.Client) *IdentityResolver {
	return &IdentityResolver{api: api, ttl: userCacheTTL, cache: make(map[string]cachedName)}
}

func (r *IdentityResolver) ResolveName(ctx context.Context, userID string) string {
	if name, ok := r.cached(userID); ok {
		return name
	}

	user, err := r.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		log.Printf("resolve user id=%s: %v", userID, err)
		return userID
	}
	name := displayName(user)
	if name == "" {
		return userID
	}

	r.mu.Lock()
	r.cache[userID] = cachedName{name: name, fetchedAt: time.Now()}
	r.mu.Unlock()
	return name
}

func (r *IdentityResolver) cached(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[userID]
	if !ok || time.Since(entry.fetchedAt) >= r.ttl {
		return "", false
	}
	return entry.name, true
}

func displayName(user *slack.User) string {
	for _, candidate := range []string{user.RealName, user.Profile.RealName, user.Profile.DisplayName, user.Name} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

// ResolveRecipients turns configured recipients into user ids. Entries that
// already look like ids are kept; anything else is matched case-insensitively
// against user names, real names and display names.
func ResolveRecipients(ctx context.Context, api *slack.Client, identifiers []string) ([]string, []string, error) {
	var ids []string
	var names []string
	for _, raw := range identifiers {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if isLikelySlackID(val) {
			ids = append(ids, val)
		} else {
			names = append(names, val)
		}
	}

	if len(names) == 0 {
		log.Printf("resolve recipients: ids=%d names=0", len(ids))
		return uniqueStrings(ids), nil, nil
	}

	users, err := api.GetUsersContext(ctx)
	if err != nil {
		log.Printf("resolve recipients: get users error: %v", err)
		return uniqueStrings(ids), names, upstreamError(domain.ServiceUsers, err)
	}

	nameToID := make(map[string]string)
	for _, user := range users {
		if user.Deleted || user.IsBot {
			continue
		}
		for _, n := range []string{user.Name, user.RealName, user.Profile.DisplayName} {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if _, exists := nameToID[n]; !exists {
				nameToID[n] = user.ID
			}
		}
	}

	var unresolved []string
	for _, name := range names {
		if id, ok := nameToID[strings.ToLower(strings.TrimPrefix(name, "@"))]; ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}

	log.Printf("resolve recipients: ids=%d unresolved=%d", len(ids), len(unresolved))
	return uniqueStrings(ids), unresolved, nil
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func uniqueStrings(vals []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
