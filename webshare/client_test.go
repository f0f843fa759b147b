package webshare

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wsfetch/internal"
)

// fakeAPI is a scriptable stand-in for the remote XML API. Each endpoint
// (salt, login, search, file_link) serves its configured response body.
type fakeAPI struct {
	responses map[string]string
	statuses  map[string]int
	requests  map[string][]map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]string),
		statuses:  make(map[string]int),
		requests:  make(map[string][]map[string]string),
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path // e.g. "/salt/"

	r.ParseForm()
	form := make(map[string]string)
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}
	f.requests[endpoint] = append(f.requests[endpoint], form)

	if status, ok := f.statuses[endpoint]; ok {
		w.WriteHeader(status)
	}
	fmt.Fprint(w, f.responses[endpoint])
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestLoginSuccess(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
	api.responses["/login/"] = `<response><status>OK</status><token>sess-token-1</token></response>`

	client := newTestClient(t, api)

	if err := client.Login("alice", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if !client.IsAuthenticated() {
		t.Error("IsAuthenticated() = false after successful login")
	}
	if got := client.Token(); got != "sess-token-1" {
		t.Errorf("Token() = %s, want sess-token-1", got)
	}

	// The login request must carry the derived hashes, not the raw password.
	logins := api.requests["/login/"]
	if len(logins) != 1 {
		t.Fatalf("expected 1 login request, got %d", len(logins))
	}
	form := logins[0]
	wantHash, wantDigest, _ := ComputeLoginCredentials("alice", "secret123", "abcdefgh")
	if form["password"] != wantHash {
		t.Errorf("login password = %s, want %s", form["password"], wantHash)
	}
	if form["digest"] != wantDigest {
		t.Errorf("login digest = %s, want %s", form["digest"], wantDigest)
	}
	if form["keep_logged_in"] != "1" {
		t.Errorf("keep_logged_in = %s, want 1", form["keep_logged_in"])
	}
	if form["username_or_email"] != "alice" {
		t.Errorf("username_or_email = %s, want alice", form["username_or_email"])
	}
}

func TestLoginSaltFailure(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `<response><status>FATAL</status><code>LOGIN_FATAL_1</code><message>User not found</message></response>`

	client := newTestClient(t, api)

	err := client.Login("nobody", "pw")
	if err == nil {
		t.Fatal("Login() error = nil, want auth error")
	}
	if !internal.IsErrorType(err, internal.ErrAuth) {
		t.Errorf("error type = %v, want ErrAuth", err)
	}

	var we *internal.WebshareError
	if !errors.As(err, &we) {
		t.Fatal("error is not a WebshareError")
	}
	if we.Code != "LOGIN_FATAL_1" {
		t.Errorf("error code = %s, want LOGIN_FATAL_1", we.Code)
	}
	if we.Message != "User not found" {
		t.Errorf("error message = %s, want remote message", we.Message)
	}
	if client.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after failed login")
	}
}

func TestLoginRejected(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
	api.responses["/login/"] = `<response><status>FATAL</status><message>Invalid password</message></response>`

	client := newTestClient(t, api)

	err := client.Login("alice", "wrong")
	if !internal.IsErrorType(err, internal.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth", err)
	}
}

func TestLoginMissingToken(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
	api.responses["/login/"] = `<response><status>OK</status></response>`

	client := newTestClient(t, api)

	err := client.Login("alice", "secret123")
	if !internal.IsErrorType(err, internal.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth for OK response without token", err)
	}
}

func TestLoginBadXML(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `this is not xml <<<`

	client := newTestClient(t, api)

	err := client.Login("alice", "secret123")
	if !internal.IsErrorType(err, internal.ErrProtocol) {
		t.Errorf("error = %v, want ErrProtocol for unparseable body", err)
	}
}

func TestLoginServerError(t *testing.T) {
	api := newFakeAPI()
	api.statuses["/salt/"] = http.StatusBadGateway

	client := newTestClient(t, api)

	err := client.Login("alice", "secret123")
	if !internal.IsErrorType(err, internal.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork for HTTP 502", err)
	}
}

func TestSearchRequiresLogin(t *testing.T) {
	client := newTestClient(t, newFakeAPI())

	_, err := client.Search("anything")
	if !internal.IsErrorType(err, internal.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
}

func TestResolveDownloadLinkRequiresLogin(t *testing.T) {
	client := newTestClient(t, newFakeAPI())

	_, err := client.ResolveDownloadLink("abc123")
	if !internal.IsErrorType(err, internal.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []internal.SearchResult
	}{
		{
			name: "file entries",
			response: `<response><status>OK</status>
				<file>
					<ident>a1B2c3D4</ident>
					<name>movie.mkv</name>
					<size>1536</size>
					<type>video</type>
					<download_count>42</download_count>
					<rating>5</rating>
					<date_added>2024-01-15</date_added>
				</file>
			</response>`,
			want: []internal.SearchResult{{
				ID: "a1B2c3D4", Name: "movie.mkv", Size: 1536, SizeFormatted: "1.5 KB",
				Type: "video", Downloads: 42, Rating: 5, Added: "2024-01-15",
			}},
		},
		{
			name: "legacy item entries with fallback tags",
			response: `<response><status>OK</status>
				<item>
					<id>xyz789</id>
					<filename>old.zip</filename>
					<size>1023</size>
					<downloads>7</downloads>
					<date>2020-06-01</date>
				</item>
			</response>`,
			want: []internal.SearchResult{{
				ID: "xyz789", Name: "old.zip", Size: 1023, SizeFormatted: "1023.0 B",
				Type: "unknown", Downloads: 7, Rating: 0, Added: "2020-06-01",
			}},
		},
		{
			name:     "no results",
			response: `<response><status>OK</status></response>`,
			want:     []internal.SearchResult{},
		},
		{
			name: "garbage size degrades to zero",
			response: `<response><status>OK</status>
				<file><ident>q</ident><name>f</name><size>huge</size></file>
			</response>`,
			want: []internal.SearchResult{{
				ID: "q", Name: "f", Size: 0, SizeFormatted: "0 B", Type: "unknown",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
			api.responses["/login/"] = `<response><status>OK</status><token>tok</token></response>`
			api.responses["/search/"] = tt.response

			client := newTestClient(t, api)
			if err := client.Login("alice", "secret123"); err != nil {
				t.Fatalf("Login() error = %v", err)
			}

			results, err := client.Search("query")
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}

			if len(results) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.want))
			}
			for i, want := range tt.want {
				if results[i] != want {
					t.Errorf("result[%d] = %+v, want %+v", i, results[i], want)
				}
			}

			// The search request carries the session token and fixed sort order.
			form := api.requests["/search/"][0]
			if form["wst"] != "tok" {
				t.Errorf("search wst = %s, want tok", form["wst"])
			}
			if form["sort"] != "largest" || form["order"] != "desc" {
				t.Errorf("search sort/order = %s/%s, want largest/desc", form["sort"], form["order"])
			}
		})
	}
}

func TestSearchRemoteFailure(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
	api.responses["/login/"] = `<response><status>OK</status><token>tok</token></response>`
	api.responses["/search/"] = `<response><status>FATAL</status><message>Service unavailable</message></response>`

	client := newTestClient(t, api)
	if err := client.Login("alice", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	_, err := client.Search("query")
	if !internal.IsErrorType(err, internal.ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
}

func TestResolveDownloadLink(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     internal.ResolvedLink
	}{
		{
			name: "full response",
			response: `<response><status>OK</status>
				<link>https://dl.example.com/file</link>
				<name>movie.mkv</name>
				<size>123456</size>
			</response>`,
			want: internal.ResolvedLink{
				DownloadURL: "https://dl.example.com/file",
				FileName:    "movie.mkv",
				FileSize:    123456,
			},
		},
		{
			name: "non-numeric size means unknown",
			response: `<response><status>OK</status>
				<link>https://dl.example.com/file</link>
				<name>movie.mkv</name>
				<size>n/a</size>
			</response>`,
			want: internal.ResolvedLink{
				DownloadURL: "https://dl.example.com/file",
				FileName:    "movie.mkv",
				FileSize:    0,
			},
		},
		{
			name: "missing name gets default",
			response: `<response><status>OK</status>
				<link>https://dl.example.com/file</link>
			</response>`,
			want: internal.ResolvedLink{
				DownloadURL: "https://dl.example.com/file",
				FileName:    "download",
				FileSize:    0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
			api.responses["/login/"] = `<response><status>OK</status><token>tok</token></response>`
			api.responses["/file_link/"] = tt.response

			client := newTestClient(t, api)
			if err := client.Login("alice", "secret123"); err != nil {
				t.Fatalf("Login() error = %v", err)
			}

			link, err := client.ResolveDownloadLink("a1B2c3D4")
			if err != nil {
				t.Fatalf("ResolveDownloadLink() error = %v", err)
			}
			if *link != tt.want {
				t.Errorf("link = %+v, want %+v", *link, tt.want)
			}

			form := api.requests["/file_link/"][0]
			if form["ident"] != "a1B2c3D4" {
				t.Errorf("file_link ident = %s, want a1B2c3D4", form["ident"])
			}
			if form["wst"] != "tok" {
				t.Errorf("file_link wst = %s, want tok", form["wst"])
			}
		})
	}
}

func TestLogout(t *testing.T) {
	api := newFakeAPI()
	api.responses["/salt/"] = `<response><status>OK</status><salt>abcdefgh</salt></response>`
	api.responses["/login/"] = `<response><status>OK</status><token>tok</token></response>`

	client := newTestClient(t, api)
	if err := client.Login("alice", "secret123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	client.Logout()
	if client.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after Logout()")
	}
	if _, err := client.Search("query"); !internal.IsErrorType(err, internal.ErrNotAuthenticated) {
		t.Errorf("Search() after logout error = %v, want ErrNotAuthenticated", err)
	}
}

func TestIsDigits(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"123", true},
		{"0", true},
		{"", false},
		{"12a", false},
		{"-5", false},
		{" 1", false},
	}

	for _, tt := range tests {
		if got := isDigits(tt.input); got != tt.want {
			t.Errorf("isDigits(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
