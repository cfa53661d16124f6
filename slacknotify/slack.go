// Package slacknotify posts trust workflow notifications to Slack.
package slacknotify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/contenox/pkgbot/libredact"
	"github.com/contenox/pkgbot/recipestore"
	"github.com/contenox/pkgbot/trustworkflow"
	"github.com/slack-go/slack"
)

// Action ids of the buttons on a trust diff message. Their value is the
// error message id.
const (
	ActionApprove  = "trust_approve"
	ActionDeny     = "trust_deny"
	decisionBlocks = "trust_decision"
)

// SlackAPI is the subset of *slack.Client the notifier uses.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
}

type Notifier struct {
	client   SlackAPI
	channel  string
	redactor *libredact.Redactor
}

var _ trustworkflow.Notifier = (*Notifier)(nil)

// New posts to channel through client. Every text is passed through
// redactor before it leaves the process.
func New(client SlackAPI, channel string, redactor *libredact.Redactor) *Notifier {
	return &Notifier{client: client, channel: channel, redactor: redactor}
}

// NewWithToken builds a Notifier on a slack.Client for botToken.
func NewWithToken(botToken, channel string, redactor *libredact.Redactor) *Notifier {
	return New(slack.New(botToken), channel, redactor)
}

func (n *Notifier) text(kind, s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(kind, n.redactor.Redact(s), false, false)
}

// Slack rejects header blocks with longer text.
const maxHeaderRunes = 150

func (n *Notifier) header(s string) slack.Block {
	text := []rune(n.redactor.Redact(s))
	if len(text) > maxHeaderRunes {
		text = append(text[:maxHeaderRunes-1], '…')
	}
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, string(text), false, false))
}

func (n *Notifier) section(s string) slack.Block {
	return slack.NewSectionBlock(n.text(slack.MarkdownType, s), nil, nil)
}

func (n *Notifier) footer(msg *recipestore.ErrorMessage) slack.Block {
	return slack.NewContextBlock("",
		n.text(slack.MarkdownType, fmt.Sprintf("Recipe: `%s` | Error ID: %d", msg.RecipeID, msg.ID)))
}

func codeBlock(s string) string {
	return "```" + s + "```"
}

// publish edits the message msg already points at, or posts a new one to
// the default channel.
func (n *Notifier) publish(ctx context.Context, msg *recipestore.ErrorMessage, fallback string, blocks ...slack.Block) (trustworkflow.Handles, error) {
	opts := []slack.MsgOption{
		slack.MsgOptionText(n.redactor.Redact(fallback), false),
		slack.MsgOptionBlocks(blocks...),
	}
	if msg != nil && msg.SlackTS != "" && msg.SlackChannel != "" {
		channel, ts, _, err := n.client.UpdateMessageContext(ctx, msg.SlackChannel, msg.SlackTS, opts...)
		if err != nil {
			return trustworkflow.Handles{}, fmt.Errorf("failed to update slack message: %w", err)
		}
		return trustworkflow.Handles{TS: ts, Channel: channel}, nil
	}
	channel, ts, err := n.client.PostMessageContext(ctx, n.channel, opts...)
	if err != nil {
		return trustworkflow.Handles{}, fmt.Errorf("failed to post slack message: %w", err)
	}
	return trustworkflow.Handles{TS: ts, Channel: channel}, nil
}

func (n *Notifier) RecipeError(ctx context.Context, msg *recipestore.ErrorMessage, payload map[string]any) (trustworkflow.Handles, error) {
	details, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return trustworkflow.Handles{}, fmt.Errorf("failed to render error payload: %w", err)
	}
	return n.publish(ctx, nil,
		fmt.Sprintf("Encountered an error running %s", msg.RecipeID),
		n.header("Recipe failed: "+msg.RecipeID),
		n.section("The recipe has been disabled.\n"+codeBlock(string(details))),
		n.footer(msg),
	)
}

func (n *Notifier) TrustDiff(ctx context.Context, msg *recipestore.ErrorMessage, diff string) (trustworkflow.Handles, error) {
	id := strconv.FormatInt(msg.ID, 10)
	approve := slack.NewButtonBlockElement(ActionApprove, id, n.text(slack.PlainTextType, "Approve"))
	approve.Style = slack.StylePrimary
	deny := slack.NewButtonBlockElement(ActionDeny, id, n.text(slack.PlainTextType, "Deny"))
	deny.Style = slack.StyleDanger

	return n.publish(ctx, nil,
		fmt.Sprintf("Trust verification failed for %s", msg.RecipeID),
		n.header("Trust info changed: "+msg.RecipeID),
		n.section("Parent recipe trust info has changed. Review the diff before approving.\n"+codeBlock(diff)),
		slack.NewActionBlock(decisionBlocks, approve, deny),
		n.footer(msg),
	)
}

func (n *Notifier) TrustUpdateSucceeded(ctx context.Context, msg *recipestore.ErrorMessage) (trustworkflow.Handles, error) {
	return n.publish(ctx, msg,
		fmt.Sprintf("Trust info updated for %s", msg.RecipeID),
		n.header("Trust info updated: "+msg.RecipeID),
		n.section(":white_check_mark: Trust info was updated and the recipe is enabled."),
		n.footer(msg),
	)
}

func (n *Notifier) TrustUpdateFailed(ctx context.Context, msg *recipestore.ErrorMessage, errText string) (trustworkflow.Handles, error) {
	return n.publish(ctx, msg,
		fmt.Sprintf("Failed to update trust info for %s", msg.RecipeID),
		n.header("Trust update failed: "+msg.RecipeID),
		n.section(":x: The recipe has been disabled.\n"+codeBlock(errText)),
		n.footer(msg),
	)
}

func (n *Notifier) TrustDenied(ctx context.Context, msg *recipestore.ErrorMessage) (trustworkflow.Handles, error) {
	return n.publish(ctx, msg,
		fmt.Sprintf("Trust update denied for %s", msg.RecipeID),
		n.header("Trust update denied: "+msg.RecipeID),
		n.section(":no_entry_sign: The trust changes were not approved. The recipe stays disabled."),
		n.footer(msg),
	)
}

func (n *Notifier) MissingRecipe(ctx context.Context, userID, channel, recipeID, action string) error {
	if channel == "" {
		channel = n.channel
	}
	_, err := n.client.PostEphemeralContext(ctx, channel, userID,
		slack.MsgOptionText(n.redactor.Redact(fmt.Sprintf("Encountered error attempting to %s `%s`", action, recipeID)), false),
		slack.MsgOptionBlocks(
			n.section(fmt.Sprintf(":warning: Unable to %s `%s`: the recipe no longer exists.", action, recipeID)),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to post ephemeral message: %w", err)
	}
	return nil
}
