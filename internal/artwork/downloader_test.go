// ABOUTME: Tests for the artwork resolver: HTTP download, caching, and error handling
package artwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestNewDownloader(t *testing.T) {
	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	if dl == nil {
		t.Fatal("expected downloader to be created")
	}
	if _, err := os.Stat(dl.cacheDir); os.IsNotExist(err) {
		t.Error("cache directory was not created")
	}
	dl.Cleanup()
}

func TestResolveSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fake image data"))
	}))
	defer server.Close()

	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	path, err := dl.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected path to be returned")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artwork file: %v", err)
	}
	if string(content) != "fake image data" {
		t.Errorf("expected content 'fake image data', got '%s'", string(content))
	}
}

func TestResolveCaching(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fake image data"))
	}))
	defer server.Close()

	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	path1, err := dl.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if requestCount != 1 {
		t.Errorf("expected 1 request, got %d", requestCount)
	}

	path2, err := dl.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if requestCount != 1 {
		t.Errorf("expected cached resolve to not hit server, but got %d requests", requestCount)
	}
	if path1 != path2 {
		t.Errorf("expected same path for cached resolve, got %s and %s", path1, path2)
	}
}

func TestResolveHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	_, err = dl.Resolve(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected error to mention 404, got: %v", err)
	}
}

func TestResolveEmptyURL(t *testing.T) {
	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	path, err := dl.Resolve(context.Background(), "")
	if err != nil {
		t.Errorf("expected no error for empty URL, got: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path for empty URL, got: %s", path)
	}
}

func TestResolveInvalidURL(t *testing.T) {
	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	_, err = dl.Resolve(context.Background(), "not-a-valid-url")
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestResolveRespectsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fake image data"))
	}))
	defer server.Close()

	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = dl.Resolve(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"http://example.com/image.jpg", ".jpg"},
		{"http://example.com/image.png", ".png"},
		{"http://example.com/image.webp", ".webp"},
		{"http://example.com/image.jpg?size=large", ".jpg"},
		{"http://example.com/image", ".jpg"},
		{"http://example.com/path/to/image.jpeg", ".jpeg"},
	}

	for _, tt := range tests {
		result := extensionOf(tt.url)
		if result != tt.expected {
			t.Errorf("extensionOf(%q) = %q, expected %q", tt.url, result, tt.expected)
		}
	}
}

func TestResolveMultipleURLsProduceDistinctPaths(t *testing.T) {
	server1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("image 1"))
	}))
	defer server1.Close()

	server2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("image 2"))
	}))
	defer server2.Close()

	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	path1, err := dl.Resolve(context.Background(), server1.URL)
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	path2, err := dl.Resolve(context.Background(), server2.URL)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}

	if path1 == path2 {
		t.Error("expected different paths for different URLs")
	}
	if _, err := os.Stat(path1); os.IsNotExist(err) {
		t.Errorf("first file was not created at %s", path1)
	}
	if _, err := os.Stat(path2); os.IsNotExist(err) {
		t.Errorf("second file was not created at %s", path2)
	}
}

func TestCleanup(t *testing.T) {
	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}

	cacheDir := dl.cacheDir
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Fatal("cache directory was not created")
	}

	if err := dl.Cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Error("cache directory still exists after cleanup")
	}
}

func TestCacheDirUnderTempDir(t *testing.T) {
	dl, err := NewDownloader()
	if err != nil {
		t.Fatalf("failed to create downloader: %v", err)
	}
	defer dl.Cleanup()

	if !strings.HasPrefix(dl.cacheDir, os.TempDir()) {
		t.Error("cache directory should be in temp dir")
	}
	if !strings.Contains(dl.cacheDir, "sendspin-player-artwork") {
		t.Error("cache directory should contain 'sendspin-player-artwork'")
	}
}
