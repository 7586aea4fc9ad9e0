package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// Intent is a bit flag selecting which event groups the gateway delivers.
type Intent uint64

const (
	IntentGuilds                 Intent = 1 << 0
	IntentGuildMembers           Intent = 1 << 1
	IntentGuildModeration        Intent = 1 << 2
	IntentGuildEmojisAndStickers Intent = 1 << 3
	IntentGuildIntegrations      Intent = 1 << 4
	IntentGuildWebhooks          Intent = 1 << 5
	IntentGuildInvites           Intent = 1 << 6
	IntentGuildVoiceStates       Intent = 1 << 7
	IntentGuildPresences         Intent = 1 << 8
	IntentGuildMessages          Intent = 1 << 9
	IntentGuildMessageReactions  Intent = 1 << 10
	IntentGuildMessageTyping     Intent = 1 << 11
	IntentDirectMessages         Intent = 1 << 12
	IntentDirectMessageReactions Intent = 1 << 13
	IntentDirectMessageTyping    Intent = 1 << 14
	IntentMessageContent         Intent = 1 << 15
	IntentGuildScheduledEvents   Intent = 1 << 16
)

var intentNames = map[string]Intent{
	"guilds":                    IntentGuilds,
	"guild_members":             IntentGuildMembers,
	"guild_moderation":          IntentGuildModeration,
	"guild_emojis_and_stickers": IntentGuildEmojisAndStickers,
	"guild_integrations":        IntentGuildIntegrations,
	"guild_webhooks":            IntentGuildWebhooks,
	"guild_invites":             IntentGuildInvites,
	"guild_voice_states":        IntentGuildVoiceStates,
	"guild_presences":           IntentGuildPresences,
	"guild_messages":            IntentGuildMessages,
	"guild_message_reactions":   IntentGuildMessageReactions,
	"guild_message_typing":      IntentGuildMessageTyping,
	"direct_messages":           IntentDirectMessages,
	"direct_message_reactions":  IntentDirectMessageReactions,
	"direct_message_typing":     IntentDirectMessageTyping,
	"message_content":           IntentMessageContent,
	"guild_scheduled_events":    IntentGuildScheduledEvents,
}

// CombineIntents ORs the given intents into a single bit set.
func CombineIntents(intents ...Intent) Intent {
	var result Intent
	for _, i := range intents {
		result |= i
	}
	return result
}

// Has returns true if the set contains every bit of other.
func (i Intent) Has(other Intent) bool {
	return i&other == other
}

// ParseIntent resolves an intent by its snake_case name.
// Matching ignores case and treats '-' like '_'.
func ParseIntent(name string) (Intent, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if i, ok := intentNames[key]; ok {
		return i, nil
	}
	return 0, fmt.Errorf("protocol: unknown intent %q", name)
}

// ParseIntents resolves and combines a list of intent names.
func ParseIntents(names []string) (Intent, error) {
	var result Intent
	for _, name := range names {
		i, err := ParseIntent(name)
		if err != nil {
			return 0, err
		}
		result |= i
	}
	return result, nil
}

// IntentNames returns the known intent names in sorted order.
func IntentNames() []string {
	names := make([]string, 0, len(intentNames))
	for name := range intentNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
