package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/block"
	"github.com/tendant/simple-cms/pkg/simplecms/configschema"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
	configmemory "github.com/tendant/simple-cms/pkg/simplecms/configstore/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/imagestyle"
	"github.com/tendant/simple-cms/pkg/simplecms/plugin"
	"github.com/tendant/simple-cms/pkg/simplecms/storage"
	"github.com/tendant/simple-cms/pkg/simplecms/storage/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/system"
)

const testSecret = "test-secret"

type testServer struct {
	handler  http.Handler
	config   *configstore.Factory
	wrappers *storage.Wrappers
	jwt      *jwtauth.JWTAuth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	reg := configschema.NewRegistry()
	require.NoError(t, system.RegisterSchema(reg))
	config := configstore.NewFactory(configmemory.New(), configstore.WithSchemaChecker(configschema.NewChecker(reg)))
	for _, f := range system.DefaultDateFormats() {
		require.NoError(t, config.Save(ctx, f.ConfigName(), f.ToConfig()))
	}

	wrappers := storage.NewWrappers()
	wrappers.Register(storage.SchemePublic, memory.New())
	wrappers.Register(storage.SchemePrivate, memory.New())

	blocks := block.NewManager(nil)
	blocks.Register(plugin.Definition{ID: "system_branding_block", Extra: map[string]any{block.CategoryKey: "System"}}, nil)

	ja := jwtauth.New("HS256", []byte(testSecret), nil)
	handler := NewRouter(Deps{
		Config:   config,
		Blocks:   blocks,
		Styles:   imagestyle.NewService(wrappers, imagestyle.WithConfig(config), imagestyle.WithTempDir(t.TempDir())),
		Wrappers: wrappers,
		JWTAuth:  ja,
	})
	return &testServer{handler: handler, config: config, wrappers: wrappers, jwt: ja}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) token(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	_, token, err := s.jwt.Encode(claims)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")
}

func TestCheckConfig(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus string
		wantErrKey string
	}{
		{
			name:       "valid",
			path:       "/config/system.site/check",
			body:       `{"name":"Drupal","weight_select_max":100,"admin_compact_mode":false}`,
			wantStatus: "valid",
		},
		{
			name:       "no schema",
			path:       "/config/custom.settings/check",
			body:       `{"anything":1}`,
			wantStatus: "no_schema",
		},
		{
			name:       "wrong type",
			path:       "/config/system.site/check",
			body:       `{"weight_select_max":"many"}`,
			wantStatus: "invalid",
			wantErrKey: "system.site:weight_select_max",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, tt.path, tt.body, "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var resp CheckResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantErrKey != "" {
				require.Contains(t, resp.Errors, tt.wantErrKey)
				assert.Contains(t, resp.Errors[tt.wantErrKey], "Variable type is string but applied schema class is IntegerData")
			} else {
				assert.Empty(t, resp.Errors)
			}
		})
	}
}

func TestCheckConfig_BadBody(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/config/system.site/check", `[1,2]`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSaveAndGetConfig(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPut, "/config/system.site", `{"weight_select_max":"many"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "system.site:weight_select_max")

	rr = s.do(t, http.MethodPut, "/config/system.site", `{"name":"Example","weight_select_max":50}`, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodGet, "/config/system.site", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"name":"Example","weight_select_max":50}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/config/system.missing", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/config/?prefix=system.date_format.html", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["system.date_format.html_date","system.date_format.html_datetime"]`, rr.Body.String())
}

func TestDateFormatAccess(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, map[string]interface{}{"uid": "1", "permissions": []string{"administer site configuration"}})
	editor := s.token(t, map[string]interface{}{"uid": "2", "permissions": []string{"access content"}})

	t.Run("view is always allowed", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/date-formats/fallback", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var f system.DateFormat
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &f))
		assert.Equal(t, "fallback", f.FormatID)
		assert.True(t, f.Locked)
	})

	t.Run("list", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/date-formats/", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var formats []system.DateFormat
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &formats))
		assert.Len(t, formats, len(system.DefaultDateFormats()))
	})

	t.Run("locked formats cannot be changed by anyone", func(t *testing.T) {
		rr := s.do(t, http.MethodPatch, "/date-formats/html_date", `{"pattern":"d.m.Y"}`, admin)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		rr = s.do(t, http.MethodDelete, "/date-formats/fallback", "", admin)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unlocked formats need the admin permission", func(t *testing.T) {
		rr := s.do(t, http.MethodPatch, "/date-formats/short", `{"pattern":"d.m.Y"}`, editor)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		rr = s.do(t, http.MethodPatch, "/date-formats/short", `{"pattern":"d.m.Y"}`, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = s.do(t, http.MethodPatch, "/date-formats/short", `{"pattern":"d.m.Y"}`, admin)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		data, err := s.config.Get(context.Background(), "system.date_format.short")
		require.NoError(t, err)
		assert.Equal(t, "d.m.Y", data["pattern"])

		rr = s.do(t, http.MethodDelete, "/date-formats/short", "", admin)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		rr = s.do(t, http.MethodGet, "/date-formats/short", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("empty pattern", func(t *testing.T) {
		rr := s.do(t, http.MethodPatch, "/date-formats/medium", `{"pattern":"  "}`, admin)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/date-formats/medium", "", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAccountFromClaims(t *testing.T) {
	a := AccountFromClaims(map[string]interface{}{"uid": float64(7), "permissions": []interface{}{"a", 3, "b"}})
	assert.Equal(t, "7", a.ID())
	assert.Equal(t, []string{"a", "b"}, a.Permissions)
	assert.True(t, a.IsAuthenticated())

	assert.False(t, AccountFromClaims(map[string]interface{}{}).IsAuthenticated())
	assert.False(t, AccountFromContext(context.Background()).IsAuthenticated())
}

func TestBlockCategoryAutocomplete(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/block-category/autocomplete?q=sy", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"value":"System","label":"System"}]`, rr.Body.String())
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStyleDelivery(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	style := imagestyle.NewStyle("thumbnail", "Thumbnail (100×100)").
		AddEffect("scale", map[string]any{"width": 100, "height": 100, "upscale": false})
	require.NoError(t, s.config.Save(ctx, style.ConfigName(), style.ToConfig()))

	converted := imagestyle.NewStyle("thumb_jpg", "JPEG thumbnail").
		AddEffect("scale", map[string]any{"width": 50, "height": 50, "upscale": false}).
		AddEffect("convert", map[string]any{"extension": "jpg"})
	require.NoError(t, s.config.Save(ctx, converted.ConfigName(), converted.ToConfig()))

	require.NoError(t, s.wrappers.Write(ctx, "public://photos/cat.png", bytes.NewReader(pngBytes(t, 400, 200)), "image/png"))

	rr := s.do(t, http.MethodGet, "/styles/thumbnail/public/photos/cat.png", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	cfg, err := png.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	_, err = s.wrappers.Stat(ctx, "public://styles/thumbnail/public/photos/cat.png")
	require.NoError(t, err)

	// Served from storage the second time.
	rr = s.do(t, http.MethodGet, "/styles/thumbnail/public/photos/cat.png", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/styles/thumb_jpg/public/photos/cat.png.jpg", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	_, err = s.wrappers.Stat(ctx, "public://styles/thumb_jpg/public/photos/cat.png.jpg")
	assert.NoError(t, err)
}

func TestStyleDelivery_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	style := imagestyle.NewStyle("thumbnail", "Thumbnail").AddEffect("scale", map[string]any{"width": 100, "height": 100, "upscale": false})
	require.NoError(t, s.config.Save(ctx, style.ConfigName(), style.ToConfig()))

	rr := s.do(t, http.MethodGet, "/styles/missing/public/photos/cat.png", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/styles/thumbnail/public/photos/nope.png", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/styles/thumbnail/ftp/photos/cat.png", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	require.NoError(t, s.wrappers.Write(ctx, "public://photos/broken.png", strings.NewReader("not an image"), "image/png"))
	rr = s.do(t, http.MethodGet, "/styles/thumbnail/public/photos/broken.png", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSourceTarget(t *testing.T) {
	converting := imagestyle.NewStyle("c", "C").AddEffect("convert", map[string]any{"extension": "jpg"})
	plain := imagestyle.NewStyle("p", "P")

	assert.Equal(t, "a/cat.png", sourceTarget(converting, "a/cat.png.jpg"))
	assert.Equal(t, "a/cat.jpg", sourceTarget(converting, "a/cat.jpg"))
	assert.Equal(t, "a/cat.png.jpg", sourceTarget(plain, "a/cat.png.jpg"))
	assert.Equal(t, "cat", sourceTarget(converting, "cat"))
}
