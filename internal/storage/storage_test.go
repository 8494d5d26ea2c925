package storage

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/pamfree/internal/config"
)

func TestFloorImageKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	tests := []struct {
		name, file, ctype, want string
	}{
		{"png by type", "plan.PNG", "image/png", "floors/m1/7/1700000000123.png"},
		{"jpeg by type", "plan", "image/jpeg", "floors/m1/7/1700000000123.jpg"},
		{"unknown type uses file ext", "plan.BMP", "image/bmp", "floors/m1/7/1700000000123.bmp"},
		{"no ext", "plan", "image/x-unknown", "floors/m1/7/1700000000123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloorImageKey("m1", 7, tt.file, tt.ctype, at); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestImageType(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR", "image/png"},
		{"jpeg", "\xff\xd8\xff\xe0\x00\x10JFIF", "image/jpeg"},
		{"gif", "GIF89a\x01\x00\x01\x00", "image/gif"},
		{"webp", "RIFF\x00\x00\x00\x00WEBPVP8 ", "image/webp"},
		{"svg", `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`, ""},
		{"html", "<!DOCTYPE html><p>x</p>", ""},
		{"bmp", "BM\x00\x00\x00\x00", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageType([]byte(tt.data)); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("https://cdn.test/")
	url, err := s.Upload(context.Background(), "a/b.png", []byte("x"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.test/a/b.png" {
		t.Fatalf("url = %q", url)
	}
	if !s.Has("a/b.png") {
		t.Fatal("object missing")
	}
	if err := s.Delete(context.Background(), "a/b.png"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(context.Background(), "a/b.png"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("store not empty")
	}
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		cfg  config.StorageConfig
		want string
	}{
		{config.StorageConfig{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
		{config.StorageConfig{Bucket: "b", Endpoint: "http://minio:9000/"}, "http://minio:9000/b"},
		{config.StorageConfig{Bucket: "b", PublicBaseURL: "https://img.example.com/"}, "https://img.example.com"},
	}
	for _, tt := range tests {
		if got := publicBase(tt.cfg); got != tt.want {
			t.Errorf("publicBase(%+v) = %q want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestNewS3StoreDisabled(t *testing.T) {
	if _, err := NewS3Store(context.Background(), config.StorageConfig{}); err != ErrNotConfigured {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}
