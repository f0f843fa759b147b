package webshare

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"wsfetch/internal"
	"wsfetch/utils"
)

// Client owns the authenticated session against the remote file-hosting API
// and translates its XML operations into typed results. One Client holds one
// logged-in identity at a time; a re-login replaces the session in place.
type Client struct {
	baseURL    string
	httpClient *utils.HTTPClient

	mutex sync.RWMutex
	token string // non-empty iff authenticated
}

// NewClient creates a Client against the given API base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, utils.NewHTTPClient())
}

// NewClientWithHTTP creates a Client with a custom HTTP client.
func NewClientWithHTTP(baseURL string, httpClient *utils.HTTPClient) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// IsAuthenticated reports whether a login has succeeded and not been
// cleared since.
func (c *Client) IsAuthenticated() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.token != ""
}

// Token returns the current session token, or "" when not authenticated.
func (c *Client) Token() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.token
}

// Logout clears the session.
func (c *Client) Logout() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.token = ""
}

// Login performs the three-step handshake: fetch the per-user salt, derive
// the credential hashes, then exchange them for a session token. All remote
// failures surface immediately as typed errors; nothing is retried.
func (c *Client) Login(username, password string) error {
	internal.LogInfo("Attempting login for user: %s", username)

	salt, err := c.getSalt(username)
	if err != nil {
		return err
	}
	internal.LogDebug("Retrieved salt for user: %s", username)

	passwordHash, digest, err := ComputeLoginCredentials(username, password, salt)
	if err != nil {
		return internal.NewAuthError(err.Error(), "")
	}

	root, err := c.postXML("login", url.Values{
		"username_or_email": {username},
		"password":          {passwordHash},
		"digest":            {digest},
		"keep_logged_in":    {"1"},
	})
	if err != nil {
		return err
	}

	if status := elementText(root, "status"); status != "OK" {
		return internal.NewAuthError(
			elementTextDefault(root, "message", "login rejected"),
			elementText(root, "code"),
		)
	}

	token := elementText(root, "token")
	if token == "" {
		return internal.NewAuthError("login successful but no token received", "")
	}

	c.mutex.Lock()
	c.token = token
	c.mutex.Unlock()

	internal.LogInfo("Successfully logged in as %s", username)
	return nil
}

// getSalt retrieves the per-user password salt.
func (c *Client) getSalt(username string) (string, error) {
	root, err := c.postXML("salt", url.Values{
		"username_or_email": {username},
	})
	if err != nil {
		return "", err
	}

	if status := elementText(root, "status"); status != "OK" {
		return "", internal.NewAuthError(
			elementTextDefault(root, "message", "failed to get salt"),
			elementText(root, "code"),
		)
	}

	salt := elementText(root, "salt")
	if salt == "" {
		return "", internal.NewAuthError("no salt found in response", "")
	}

	return salt, nil
}

// Search queries the remote catalog, largest files first.
func (c *Client) Search(query string) ([]internal.SearchResult, error) {
	token := c.Token()
	if token == "" {
		return nil, internal.NewNotAuthenticatedError()
	}

	root, err := c.postXML("search", url.Values{
		"what":     {query},
		"category": {""},
		"sort":     {"largest"},
		"order":    {"desc"},
		"wst":      {token},
	})
	if err != nil {
		return nil, err
	}

	if status := elementText(root, "status"); status != "OK" {
		return nil, internal.NewRemoteError(elementTextDefault(root, "message", "search failed"))
	}

	return parseSearchResults(root), nil
}

// parseSearchResults extracts catalog entries from a search response. The
// service has shipped more than one schema for these, so every field is
// read through fallback tag names and missing values degrade to defaults
// instead of failing.
func parseSearchResults(root *etree.Element) []internal.SearchResult {
	entries := root.FindElements(".//file")
	if len(entries) == 0 {
		entries = root.FindElements(".//item")
	}

	results := make([]internal.SearchResult, 0, len(entries))
	for _, entry := range entries {
		size := firstInt(entry, "size")
		results = append(results, internal.SearchResult{
			ID:            firstText(entry, "ident", "id"),
			Name:          firstText(entry, "name", "filename"),
			Size:          size,
			SizeFormatted: utils.FormatFileSize(size),
			Type:          firstTextDefault(entry, "unknown", "type"),
			Downloads:     firstInt(entry, "download_count", "downloads"),
			Rating:        firstInt(entry, "rating"),
			Added:         firstText(entry, "date_added", "date"),
		})
	}

	return results
}

// ResolveDownloadLink exchanges a file id for a direct download URL.
func (c *Client) ResolveDownloadLink(fileID string) (*internal.ResolvedLink, error) {
	token := c.Token()
	if token == "" {
		return nil, internal.NewNotAuthenticatedError()
	}

	root, err := c.postXML("file_link", url.Values{
		"ident": {fileID},
		"wst":   {token},
	})
	if err != nil {
		return nil, err
	}

	if status := elementText(root, "status"); status != "OK" {
		return nil, internal.NewRemoteError(elementTextDefault(root, "message", "download link resolution failed"))
	}

	// Size is advisory: anything that is not a plain digit string counts
	// as unknown, never as an error.
	var fileSize int64
	if sizeText := elementText(root, "size"); isDigits(sizeText) {
		fileSize, _ = strconv.ParseInt(sizeText, 10, 64)
	}

	return &internal.ResolvedLink{
		DownloadURL: elementText(root, "link"),
		FileName:    elementTextDefault(root, "name", "download"),
		FileSize:    fileSize,
	}, nil
}

// postXML POSTs a form to the given API endpoint and returns the parsed XML
// root. Transport failures and non-2xx statuses map to NetworkError,
// unparseable bodies to ProtocolError.
func (c *Client) postXML(endpoint string, form url.Values) (*etree.Element, error) {
	requestURL := fmt.Sprintf("%s/%s/", c.baseURL, endpoint)

	resp, err := c.httpClient.PostForm(requestURL, form)
	if err != nil {
		return nil, internal.NewNetworkError(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.NewNetworkError(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, internal.NewNetworkError(endpoint, fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode))
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, internal.NewProtocolError(fmt.Sprintf("invalid XML in %s response", endpoint), err)
	}

	root := doc.Root()
	if root == nil {
		return nil, internal.NewProtocolError(fmt.Sprintf("empty %s response", endpoint), nil)
	}

	return root, nil
}

// elementText returns the text of the named child element, or "".
func elementText(el *etree.Element, name string) string {
	if child := el.FindElement(name); child != nil {
		return child.Text()
	}
	return ""
}

// elementTextDefault returns the text of the named child element, or def
// when absent or empty.
func elementTextDefault(el *etree.Element, name, def string) string {
	if text := elementText(el, name); text != "" {
		return text
	}
	return def
}

// firstText returns the text of the first present child among names, or "".
func firstText(el *etree.Element, names ...string) string {
	for _, name := range names {
		if text := elementText(el, name); text != "" {
			return text
		}
	}
	return ""
}

// firstTextDefault is firstText with a fallback default.
func firstTextDefault(el *etree.Element, def string, names ...string) string {
	if text := firstText(el, names...); text != "" {
		return text
	}
	return def
}

// firstInt parses the first present child among names as an integer,
// defaulting to 0 on absence or garbage.
func firstInt(el *etree.Element, names ...string) int64 {
	for _, name := range names {
		text := elementText(el, name)
		if text == "" {
			continue
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// isDigits reports whether s is non-empty and composed entirely of ASCII
// digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
