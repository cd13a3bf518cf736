// Package browser drives a headless Chrome to deliver scout messages and read responses.
package browser

import (
	"context"
	"errors"
	"fmt"
	"github.com/chromedp/chromedp"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"strings"
	"time"
)

var ErrNoPageURL = errors.New("candidate has no page url")

type Selectors struct {
	Title      string
	Content    string
	SendButton string
	Success    string
	// Status is a format string receiving the candidate source key.
	Status  string
	Name    string
	Contact string
}

var DefaultSelectors = Selectors{
	Title:      "#scout_title",
	Content:    "#scout_content",
	SendButton: "#send_scout_button",
	Success:    ".success_message",
	Status:     `[data-candidate-key="%s"] .scout_status`,
	Name:       ".candidate_name",
	Contact:    ".contact_info",
}

type Browser struct {
	allocCtx  context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	selectors Selectors
	onError   func(candidateKey string, err error)
}

func New(ctx context.Context, headless bool, timeout time.Duration) *Browser {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	return &Browser{allocCtx: allocCtx, cancel: cancel, timeout: timeout, selectors: DefaultSelectors}
}

// SetErrorCallback registers the side channel for delivery failures.
func (b *Browser) SetErrorCallback(callback func(candidateKey string, err error)) {
	b.onError = callback
}

func (b *Browser) Close() {
	b.cancel()
}

// Send fills the scout form on the candidate page. Failures are reported to the error callback.
func (b *Browser) Send(ctx context.Context, candidate entities.Candidate, message entities.ScoutMessage) bool {
	if candidate.PageURL == nil || *candidate.PageURL == "" {
		b.reportError(candidate.SourceKey, ErrNoPageURL)
		return false
	}

	err := b.run(ctx,
		chromedp.Navigate(*candidate.PageURL),
		chromedp.WaitVisible(b.selectors.Title, chromedp.ByQuery),
		chromedp.SendKeys(b.selectors.Title, message.Title, chromedp.ByQuery),
		chromedp.SendKeys(b.selectors.Content, message.Content, chromedp.ByQuery),
		chromedp.Click(b.selectors.SendButton, chromedp.ByQuery),
		chromedp.WaitVisible(b.selectors.Success, chromedp.ByQuery),
	)
	if err != nil {
		b.reportError(candidate.SourceKey, fmt.Errorf("scout delivery failed: %w", err))
		return false
	}
	return true
}

// FetchStatus returns the raw response label shown for the candidate on the scout page.
func (b *Browser) FetchStatus(ctx context.Context, url string, candidate entities.Candidate) (string, error) {
	if url == "" {
		return "", errors.New("scout url is empty")
	}

	var status string
	selector := fmt.Sprintf(b.selectors.Status, candidate.SourceKey)
	err := b.run(ctx,
		chromedp.Navigate(url),
		chromedp.Text(selector, &status, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("couldn't read status of %s: %w", candidate.SourceKey, err)
	}
	return strings.TrimSpace(status), nil
}

func (b *Browser) FetchContactInfo(ctx context.Context, pageURL string) (entities.ContactInfo, error) {
	if pageURL == "" {
		return entities.ContactInfo{}, ErrNoPageURL
	}

	var name, contact string
	err := b.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.Text(b.selectors.Name, &name, chromedp.ByQuery),
		chromedp.Text(b.selectors.Contact, &contact, chromedp.ByQuery),
	)
	if err != nil {
		return entities.ContactInfo{}, fmt.Errorf("couldn't collect contact info: %w", err)
	}
	return entities.ContactInfo{Name: strings.TrimSpace(name), Contact: strings.TrimSpace(contact)}, nil
}

// run executes the actions in a fresh tab bounded by the browser timeout and ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	return chromedp.Run(tabCtx, actions...)
}

func (b *Browser) reportError(candidateKey string, err error) {
	if b.onError != nil {
		b.onError(candidateKey, err)
	}
}
