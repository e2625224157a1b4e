package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

var logLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the whole configuration.
//
// Returns nil if valid, or a *ValidationErrors containing every problem.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Server == "" {
		errs.Add("server", "server is required")
	} else if u, err := url.Parse(c.Server); err != nil {
		errs.Add("server", fmt.Sprintf("invalid URL: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("server", fmt.Sprintf("unsupported scheme %q (want http or https)", u.Scheme))
	} else if u.Host == "" {
		errs.Add("server", "server URL has no host")
	}

	if c.Secret == "" {
		errs.Add("secret", "secret is required")
	}
	if strings.Count(c.IdentityPattern, "%d") != 1 {
		errs.Add("identityPattern", "identityPattern must contain exactly one %d")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "timeout cannot be negative")
	}

	if c.Client.RequestTimeout < 0 {
		errs.Add("client.requestTimeout", "requestTimeout cannot be negative")
	}
	if c.Client.MaxConnsPerHost < 0 {
		errs.Add("client.maxConnsPerHost", "maxConnsPerHost cannot be negative")
	}

	if c.Provisioning.Concurrency < 0 {
		errs.Add("provisioning.concurrency", "concurrency cannot be negative")
	}
	if c.Provisioning.GuildName == "" {
		errs.Add("provisioning.guildName", "guildName is required")
	}
	if c.Provisioning.CreateChannel && c.Provisioning.ChannelName == "" {
		errs.Add("provisioning.channelName", "channelName is required when createChannel is set")
	}

	validateSendMessages(&c.SendMessages, errs)

	if c.Smoketest.Clients < 1 {
		errs.Add("smoketest.clients", "clients must be at least 1")
	}
	if c.Smoketest.Messages < 1 {
		errs.Add("smoketest.messages", "messages must be at least 1")
	}

	validateSingleGuild(&c.SingleGuild, errs)

	if c.Conformance.Identity == "" {
		errs.Add("conformance.identity", "identity is required")
	}
	if c.Conformance.EventTimeout < 0 {
		errs.Add("conformance.eventTimeout", "eventTimeout cannot be negative")
	}

	if !logLevels[strings.ToLower(c.Log.Level)] {
		errs.Add("log.level", fmt.Sprintf("unknown log level: %s", c.Log.Level))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateSendMessages(sm *SendMessagesConfig, errs *ValidationErrors) {
	if sm.Clients < 1 {
		errs.Add("sendMessages.clients", "clients must be at least 1")
	}
	if len(sm.Sizes) == 0 {
		errs.Add("sendMessages.sizes", "at least one size is required")
	}
	for i, size := range sm.Sizes {
		if size < 1 {
			errs.Add(fmt.Sprintf("sendMessages.sizes[%d]", i), "size must be at least 1")
		}
	}
	if sm.Trials < 1 {
		errs.Add("sendMessages.trials", "trials must be at least 1")
	}
}

func validateSingleGuild(sg *SingleGuildConfig, errs *ValidationErrors) {
	if sg.Clients < 1 {
		errs.Add("singleGuild.clients", "clients must be at least 1")
	}
	if sg.Messages < 1 {
		errs.Add("singleGuild.messages", "messages must be at least 1")
	}
	if sg.InviteID == "" {
		errs.Add("singleGuild.inviteId", "inviteId is required")
	}
	if sg.ThinkTime.Min < 0 {
		errs.Add("singleGuild.thinkTime.min", "min cannot be negative")
	}
	if sg.ThinkTime.Max < sg.ThinkTime.Min {
		errs.Add("singleGuild.thinkTime.max", "max cannot be less than min")
	}
}
