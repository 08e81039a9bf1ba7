package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// style is how one severity is rendered in chat notifications.
type style struct {
	label string
	color string
}

var (
	severityStyles = map[string]style{
		"critical": {"[CRITICAL]", "FF4F6A"},
		"warning":  {"[WARNING]", "FFAB40"},
		"info":     {"[INFO]", "00D4FF"},
	}
	resolvedStyle = style{"[RESOLVED]", "2EB67D"}
)

// encoders build the request body for each webhook type.
var encoders = map[string]func(a *Alert) ([]byte, error){
	"slack": slackBody,
	"teams": teamsBody,
	"http":  httpBody,
}

// deliver posts a to every webhook with a resolvable URL. Failures are logged
// per target.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		encode, ok := encoders[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		body, err := encode(a)
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"subscriber", a.SubscriberID,
				"err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type,
			"rule", a.RuleName,
			"subscriber", a.SubscriberID,
			"state", a.State)
	}
}

func slackBody(a *Alert) ([]byte, error) {
	return json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s", severityLabel(a.Severity, a.State), a.Message),
	})
}

func teamsBody(a *Alert) ([]byte, error) {
	facts := []map[string]string{
		{"name": "Subscriber", "value": a.SubscriberID},
		{"name": "Severity", "value": a.Severity},
		{"name": "Value", "value": fmt.Sprintf("%g", a.Value)},
		{"name": "Fired", "value": a.FiredAt.UTC().Format(time.RFC3339)},
	}
	if a.ResolvedAt != nil {
		facts = append(facts, map[string]string{
			"name": "Resolved", "value": a.ResolvedAt.UTC().Format(time.RFC3339),
		})
	}
	return json.Marshal(map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity, a.State),
		"summary":    a.RuleName,
		"title":      "linkpulse alert: " + a.RuleName,
		"text":       a.Message,
		"sections":   []map[string]interface{}{{"facts": facts}},
	})
}

func httpBody(a *Alert) ([]byte, error) {
	return json.Marshal(map[string]interface{}{"alert": a, "source": "linkpulse"})
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alerts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "linkpulse-server")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerts: post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alerts: webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func styleFor(sev, state string) style {
	if state == StateResolved {
		return resolvedStyle
	}
	if s, ok := severityStyles[sev]; ok {
		return s
	}
	return severityStyles["info"]
}

func severityLabel(sev, state string) string { return styleFor(sev, state).label }

func severityColor(sev, state string) string { return styleFor(sev, state).color }
