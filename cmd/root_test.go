package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/gradcafe-crawler/internal/app"
	"github.com/JakeFAU/gradcafe-crawler/internal/config"
)

const listingPage = `<html><body><table><tbody>
<tr>
  <td><div class="tw-font-medium">Stanford University</div></td>
  <td><span>Computer Science</span><span>PhD</span></td>
  <td>April 11, 2025</td>
  <td>Accepted on 11 Apr</td>
  <td><a href="/result/777">See more</a></td>
</tr>
<tr><td colspan="5"><div>Fall 2025</div><div>GPA 3.90</div><div>American</div></td></tr>
</tbody></table></body></html>`

func memoryEnv(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(listingPage))
			return
		}
		_, _ = w.Write([]byte(`<html><body><table></table></body></html>`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GRADCAFE_SCRAPE_BASE_URL", srv.URL+"/survey/")
	t.Setenv("GRADCAFE_SCRAPE_REQUESTS_PER_SECOND", "0")
	t.Setenv("GRADCAFE_SNAPSHOT_BACKEND", "memory")
	t.Setenv("GRADCAFE_DB_DSN", "")
	t.Setenv("GRADCAFE_PUBSUB_TOPIC_NAME", "")
	t.Setenv("GRADCAFE_LOGGING_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScrapeCommand(t *testing.T) {
	memoryEnv(t)

	out, err := execute(t, "scrape")
	require.NoError(t, err)
	assert.Contains(t, out, "1 new, 1 total, 2 pages, stopped: no-more-rows")
}

func TestDatabaseCommandsRequireDSN(t *testing.T) {
	memoryEnv(t)

	for _, name := range []string{"load", "query", "serve"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, name)
			require.Error(t, err)
			assert.ErrorIs(t, err, app.ErrDatabaseDisabled)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	memoryEnv(t)

	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

// closeCountingApp records Close calls on a real App.
type closeCountingApp struct {
	*app.App
	closes int
}

func (c *closeCountingApp) Close() {
	c.closes++
	c.App.Close()
}

func trackCloses(t *testing.T) *[]*closeCountingApp {
	t.Helper()
	var built []*closeCountingApp
	orig := newApp
	newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
		a, err := app.NewApp(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		tracked := &closeCountingApp{App: a}
		built = append(built, tracked)
		return tracked, nil
	}
	t.Cleanup(func() { newApp = orig })
	return &built
}

func TestAppClosedAfterCommand(t *testing.T) {
	memoryEnv(t)

	for _, tc := range []struct {
		args    []string
		wantErr bool
	}{
		{args: []string{"scrape"}},
		{args: []string{"query"}, wantErr: true},
		{args: []string{"load"}, wantErr: true},
	} {
		t.Run(tc.args[0], func(t *testing.T) {
			built := trackCloses(t)

			_, err := execute(t, tc.args...)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, *built, 1)
			assert.Equal(t, 1, (*built)[0].closes)
		})
	}
}

func TestResolveAppWithoutInit(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
