package model

// IntentType is the closed label space the classifier maps prompts into.
type IntentType string

const (
	IntentEnrichProfile IntentType = "enrich_profile"
	IntentEnrichDomain  IntentType = "enrich_domain"
	IntentSearch        IntentType = "search"
	IntentWebScrape     IntentType = "web_scrape"
	IntentCommand       IntentType = "command"
	IntentUnknown       IntentType = "unknown"
)

// AllIntentTypes lists every valid intent type.
func AllIntentTypes() []IntentType {
	return []IntentType{
		IntentEnrichProfile,
		IntentEnrichDomain,
		IntentSearch,
		IntentWebScrape,
		IntentCommand,
		IntentUnknown,
	}
}

// CommandName identifies a direct operational command.
type CommandName string

const (
	CommandSendEmails     CommandName = "send_emails"
	CommandPreviewEmails  CommandName = "preview_emails"
	CommandShowProspects  CommandName = "show_prospects"
	CommandCountProspects CommandName = "count_prospects"
	CommandClearProspects CommandName = "clear_prospects"
	CommandHelp           CommandName = "help"
)

// KnownCommands is the closed allow-list of command names the dispatcher
// recognizes. Anything else must surface as an explicit unknown-command
// response, never be dropped.
var KnownCommands = map[CommandName]bool{
	CommandSendEmails:     true,
	CommandPreviewEmails:  true,
	CommandShowProspects:  true,
	CommandCountProspects: true,
	CommandClearProspects: true,
	CommandHelp:           true,
}

// Intent is the classified action a prompt maps to. Exactly one Type per
// classification; Values carries target identifiers (URLs, domains, or a
// search query); Command and Count are set only for IntentCommand.
type Intent struct {
	Type    IntentType  `json:"type"`
	Values  []string    `json:"values,omitempty"`
	Command CommandName `json:"command,omitempty"`
	Count   int         `json:"count,omitempty"`
}
