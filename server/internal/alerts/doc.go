// Package alerts implements the rule evaluation engine and webhook delivery
// for linkpulse alerting. Rules are evaluated against every received
// subscriber snapshot; webhooks are delivered to Teams, Slack, or generic
// HTTP targets when a rule fires or resolves.
package alerts
