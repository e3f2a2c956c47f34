package drive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"sentinel/internal/logging"
)

// Authorize returns an HTTP client for the Drive API. The OAuth client
// secret is read from credentialsFile. A cached token in tokenFile is used
// when present; otherwise the consent URL is written to out and the browser
// is redirected back to a loopback listener. If no listener can be opened the
// code is pasted on in instead. Tokens obtained or refreshed later are
// written back to tokenFile.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) (*http.Client, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read drive credentials: %w", err)
	}
	config, err := google.ConfigFromJSON(secret, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse drive credentials: %w", err)
	}

	tok, err := loadToken(tokenFile)
	if err != nil {
		logging.Remote("no cached drive token, starting consent flow")
		tok, err = consent(ctx, config, in, out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			logging.RemoteWarn("failed to cache drive token: %v", err)
		}
	}

	src := &savingTokenSource{
		base:   config.TokenSource(ctx, tok),
		path:   tokenFile,
		access: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// savingTokenSource writes every newly issued token to path.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu     sync.Mutex
	access string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.access {
		s.access = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			logging.RemoteWarn("failed to cache refreshed drive token: %v", err)
		} else {
			logging.RemoteDebug("cached refreshed drive token (expires %s)", tok.Expiry.Format(time.RFC3339))
		}
	}
	return tok, nil
}

type callback struct {
	code string
	err  error
}

// consent runs the installed-app flow against a loopback redirect.
func consent(ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	state := uuid.NewString()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logging.RemoteWarn("loopback listener unavailable, falling back to a pasted code: %v", err)
		return pastedConsent(ctx, config, state, in, out)
	}

	loopback := *config
	loopback.RedirectURL = "http://" + ln.Addr().String() + "/"

	codes := make(chan callback, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			cb := callback{code: q.Get("code")}
			switch {
			case q.Get("error") != "":
				cb.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
				http.Error(w, "Authorization failed. You can close this tab.", http.StatusForbidden)
			case cb.code == "":
				http.Error(w, "missing authorization code", http.StatusBadRequest)
				return
			default:
				fmt.Fprintln(w, "Sentinel is authorized. You can close this tab.")
			}
			select {
			case codes <- cb:
			default:
			}
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.RemoteWarn("loopback listener stopped: %v", err)
		}
	}()
	defer srv.Close()

	url := loopback.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser to authorize sentinel:\n%s\n", url)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case cb := <-codes:
		if cb.err != nil {
			return nil, cb.err
		}
		tok, err := loopback.Exchange(ctx, cb.code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}
		return tok, nil
	}
}

func pastedConsent(ctx context.Context, config *oauth2.Config, state string, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	url := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%s\n> ", url)

	code, err := bufio.NewReader(in).ReadString('\n')
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("no authorization code entered: %v", err)
	}
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
