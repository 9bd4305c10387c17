package server

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func getPage(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestGalleryRendersCards(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := getPage(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, `href="/star/1"`) || !strings.Contains(body, `href="/star/2"`) {
		t.Fatalf("gallery missing card links:\n%s", body)
	}
	if !strings.Contains(body, "Sirius") || !strings.Contains(body, "Canis Major") {
		t.Fatal("gallery missing star names or constellations")
	}
}

func TestStarDetailPage(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := getPage(t, ts.URL+"/star/1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	for _, want := range []string{"Sirius", "Canis Major", "8.6 light-years", "-1.46"} {
		if !strings.Contains(body, want) {
			t.Fatalf("detail page missing %q:\n%s", want, body)
		}
	}
}

func TestStarNotFound(t *testing.T) {
	ts := newTestServer(t, "")

	for _, path := range []string{"/star/999999999", "/star/abc", "/star/-1"} {
		resp, body := getPage(t, ts.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, resp.StatusCode)
		}
		if !strings.Contains(body, "Star Not Found") {
			t.Fatalf("%s: missing not-found heading", path)
		}
		if !strings.Contains(body, `href="/"`) || !strings.Contains(body, "Return to Home") {
			t.Fatalf("%s: missing return-home link", path)
		}
	}
}

func TestStaticAssetsServed(t *testing.T) {
	ts := newTestServer(t, "")

	for _, path := range []string{"/static/styles.css", "/static/chatbot.js", "/static/gallery.js"} {
		resp, body := getPage(t, ts.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, resp.StatusCode)
		}
		if len(body) == 0 {
			t.Fatalf("%s: empty asset", path)
		}
	}
}

func TestPagesCarryChatWidget(t *testing.T) {
	ts := newTestServer(t, "")

	_, body := getPage(t, ts.URL+"/")
	if !strings.Contains(body, "chatbot-root") || !strings.Contains(body, "/static/chatbot.js") {
		t.Fatal("gallery page missing chat widget mount")
	}
}
