package notifications

import (
	"fmt"

	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"
)

// Notifier handles sending notifications via Shoutrrr.
type Notifier struct {
	sr     *router.ServiceRouter
	logger *logrus.Logger
}

// NewNotifier initializes a new Notifier with the provided Shoutrrr URLs.
func NewNotifier(urls []string, logger *logrus.Logger) (*Notifier, error) {
	sr, err := router.New(nil, urls...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Notifier{sr: sr, logger: logger}, nil
}

// Send sends a notification message to all configured services.
func (n *Notifier) Send(title, message string) {
	params := types.Params{
		"title": title,
	}
	errors := n.sr.Send(message, &params)
	for _, err := range errors {
		if err != nil {
			n.logger.WithError(err).Error("Failed to send notification")
		}
	}
}

// NotifyAccountDisabled reports that an account's refresh token was
// rejected and the account has been disabled.
func (n *Notifier) NotifyAccountDisabled(projectID, provider, ownerID string, cause error) {
	title := fmt.Sprintf("Linked account disabled: %s/%s", provider, ownerID)
	message := fmt.Sprintf(
		"The refresh token for account %s (provider %s, project %s) was rejected and the account has been disabled. Re-linking is required.\nCause: %v",
		ownerID, provider, projectID, cause,
	)
	n.Send(title, message)
}
