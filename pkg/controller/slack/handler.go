package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/cli/config"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/usecase"
	"github.com/secmon-lab/vantage/pkg/utils/async"
	"github.com/slack-go/slack"
)

const commandUsage = "Usage: `/vantage [dataset-id]` posts the governance summary of a dataset (the latest one by default)."

// Handler handles Slack webhook endpoints
type Handler struct {
	slackConfig *config.Slack
	governance  *usecase.Governance
	notify      *usecase.Notify
}

// NewHandler creates a new Slack handler
func NewHandler(ctx context.Context, slackConfig *config.Slack, governance *usecase.Governance, notify *usecase.Notify) *Handler {
	return &Handler{
		slackConfig: slackConfig,
		governance:  governance,
		notify:      notify,
	}
}

// HandleCommand handles the slash command. It acknowledges immediately and posts the
// summary to the invoking channel in the background.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if !h.slackConfig.IsFullyConfigured() {
		h.writeError(w, r.Context(), goerr.New("Slack not configured"), http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctxlog.From(r.Context()).Error("Failed to read request body", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.verifySlackSignature(r, body); err != nil {
		ctxlog.From(r.Context()).Warn("Invalid Slack signature", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "invalid signature"), http.StatusUnauthorized)
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		h.writeError(w, r.Context(), goerr.Wrap(err, "failed to parse slash command"), http.StatusBadRequest)
		return
	}

	arg := strings.TrimSpace(cmd.Text)
	if arg == "help" {
		h.writeMessage(w, r.Context(), commandUsage)
		return
	}

	channelID := types.ChannelID(cmd.ChannelID)
	ctxlog.From(r.Context()).Info("Slash command received",
		"command", cmd.Command,
		"user", cmd.UserID,
		"channel", channelID,
		"text", arg,
	)

	async.Dispatch(r.Context(), func(ctx context.Context) error {
		return h.postSummary(ctx, channelID, types.DatasetID(arg))
	})

	h.writeMessage(w, r.Context(), "Generating governance summary...")
}

// postSummary posts the summary of a dataset, or an error message when it cannot
func (h *Handler) postSummary(ctx context.Context, channelID types.ChannelID, id types.DatasetID) error {
	if id == "" {
		infos, err := h.governance.ListDatasets(ctx)
		if err != nil {
			return h.reportFailure(ctx, channelID, "Failed to list datasets.", err)
		}
		if len(infos) == 0 {
			return h.reportFailure(ctx, channelID, "No dataset has been imported yet.",
				goerr.Wrap(model.ErrDatasetNotFound, "no dataset to summarize"))
		}
		id = infos[0].ID
	}

	if _, err := h.notify.NotifyDataset(ctx, channelID, id, model.Filter{}); err != nil {
		return h.reportFailure(ctx, channelID, fmt.Sprintf("Failed to generate the summary of dataset `%s`.", id), err)
	}
	return nil
}

func (h *Handler) reportFailure(ctx context.Context, channelID types.ChannelID, message string, cause error) error {
	if err := h.notify.NotifyError(ctx, channelID, message); err != nil {
		ctxlog.From(ctx).Error("Failed to post error message", "error", err)
	}
	return cause
}

// verifySlackSignature verifies the Slack request signature
func (h *Handler) verifySlackSignature(r *http.Request, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(r.Header, h.slackConfig.SigningSecret)
	if err != nil {
		return goerr.Wrap(err, "invalid signature headers")
	}
	if _, err := verifier.Write(body); err != nil {
		return goerr.Wrap(err, "failed to hash request body")
	}
	if err := verifier.Ensure(); err != nil {
		return goerr.Wrap(err, "signature mismatch")
	}
	return nil
}

// writeMessage writes an ephemeral slash command response
func (h *Handler) writeMessage(w http.ResponseWriter, ctx context.Context, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(&slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         text,
	}); err != nil {
		ctxlog.From(ctx).Error("Failed to encode slash command response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		ctxlog.From(ctx).Error("Failed to encode error response", "error", err)
	}
}
