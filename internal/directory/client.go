// Package directory provides the Active Directory collaborator: an LDAP
// client implementing review.Directory, plus a memoizing cache wrapper.
package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/soxtools/adreview/pkg/review"
)

// Options configures the LDAP client.
type Options struct {
	// ServerURL is an ldap:// or ldaps:// URL.
	ServerURL string
	Username  string
	Password  string
	BaseDN    string

	// MaxRetries is the number of re-dial attempts after a network-level
	// search failure. Zero means no retry.
	MaxRetries int
	// RetryBackoff is the base wait between retries, doubled per attempt.
	RetryBackoff time.Duration
	// Timeout bounds each request on the wire, bind included. A request
	// exceeding it fails as a network error. Zero leaves the connection
	// unbounded.
	Timeout time.Duration

	Logf func(format string, args ...any)
}

var searchAttributes = []string{
	"mail", "displayName", "department", "userAccountControl",
	"sAMAccountName", "title", "givenName", "sn",
}

// Client is the LDAP-backed review.Directory implementation. It binds once
// at dial time and re-dials only when a search fails at the network level.
// Searches are serialized on one connection, so concurrent workers are safe
// but do not fan out directory traffic.
type Client struct {
	opts Options
	logf func(format string, args ...any)

	mu   sync.Mutex
	conn *ldap.Conn
}

// Dial connects and binds. The returned client must be Closed by the caller.
func Dial(opts Options) (*Client, error) {
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	c := &Client{opts: opts, logf: opts.Logf}
	if err := c.redial(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) redial() error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	conn, err := ldap.DialURL(c.opts.ServerURL)
	if err != nil {
		return fmt.Errorf("dial directory %s: %w", c.opts.ServerURL, err)
	}
	if c.opts.Timeout > 0 {
		conn.SetTimeout(c.opts.Timeout)
	}
	if err := conn.Bind(c.opts.Username, c.opts.Password); err != nil {
		_ = conn.Close()
		return fmt.Errorf("bind as %s: %w", c.opts.Username, err)
	}
	c.conn = conn
	return nil
}

// Close releases the LDAP connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Lookup performs an exact single-attribute search.
func (c *Client) Lookup(ctx context.Context, attr review.Attribute, value string) (*review.Identity, error) {
	filter := fmt.Sprintf("(%s=%s)", attr, ldap.EscapeFilter(value))
	return c.search(ctx, filter, value)
}

// LookupNameComponents performs an exact compound match on given name and
// surname.
func (c *Client) LookupNameComponents(ctx context.Context, givenName, surname string) (*review.Identity, error) {
	filter := fmt.Sprintf("(&(givenName=%s)(sn=%s))",
		ldap.EscapeFilter(givenName), ldap.EscapeFilter(surname))
	return c.search(ctx, filter, givenName+" "+surname)
}

func (c *Client) search(ctx context.Context, filter, identifier string) (*review.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := ldap.NewSearchRequest(
		c.opts.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		searchAttributes,
		nil,
	)

	var res *ldap.SearchResult
	var err error
	backoff := c.opts.RetryBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &review.LookupError{Err: ctxErr}
		}
		res, err = c.conn.Search(req)
		if err == nil {
			break
		}
		if attempt >= c.opts.MaxRetries || !ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
			return nil, &review.LookupError{Err: fmt.Errorf("search %s: %w", filter, err)}
		}
		c.logf("directory: network error on %q, re-dialing (attempt %d/%d): %v",
			identifier, attempt+1, c.opts.MaxRetries, err)
		wait := backoff << attempt

		select {
		case <-ctx.Done():
			return nil, &review.LookupError{Err: ctx.Err()}
		case <-time.After(wait):
		}
		if dialErr := c.redial(); dialErr != nil {
			return nil, &review.LookupError{Err: dialErr}
		}
	}

	if len(res.Entries) == 0 {
		return nil, nil
	}
	if len(res.Entries) > 1 {
		c.logf("directory: multiple entries for %q, using first match", identifier)
	}
	return identityFromEntry(res.Entries[0]), nil
}

func identityFromEntry(e *ldap.Entry) *review.Identity {
	return &review.Identity{
		Username:    e.GetAttributeValue("sAMAccountName"),
		DisplayName: e.GetAttributeValue("displayName"),
		Email:       e.GetAttributeValue("mail"),
		Department:  e.GetAttributeValue("department"),
		Title:       e.GetAttributeValue("title"),
		GivenName:   e.GetAttributeValue("givenName"),
		Surname:     e.GetAttributeValue("sn"),
		Active:      accountActive(e.GetAttributeValue("userAccountControl")),
	}
}

// accountActive decodes userAccountControl; bit 0x2 is ACCOUNTDISABLE.
func accountActive(uac string) bool {
	v, err := strconv.Atoi(strings.TrimSpace(uac))
	if err != nil {
		return true
	}
	return v&0x2 == 0
}
