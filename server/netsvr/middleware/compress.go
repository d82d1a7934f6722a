package middleware

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CompressConfig 壓縮等級
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// encoder gzip.Writer 與 zstd.Encoder 的共同介面
type encoder interface {
	io.Writer
	Flush() error
	Close() error
	Reset(w io.Writer)
}

// codec 一種 Content-Encoding 與其 writer pool
type codec struct {
	name string
	pool sync.Pool
}

func (c *codec) get(w io.Writer) encoder {
	enc := c.pool.Get().(encoder)
	enc.Reset(w)
	return enc
}

// put discard 為 true 時 footer 寫到 io.Discard，不污染 204/304
func (c *codec) put(enc encoder, discard bool) {
	if discard {
		enc.Reset(io.Discard)
	}
	_ = enc.Close()
	c.pool.Put(enc)
}

// codecs 依偏好排序：zstd 優先
var codecs = []*codec{
	{name: "zstd", pool: sync.Pool{New: func() any {
		zw, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(DefaultCompressConfig.ZstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			panic(err)
		}
		return zw
	}}},
	{name: "gzip", pool: sync.Pool{New: func() any {
		gw, err := gzip.NewWriterLevel(nil, DefaultCompressConfig.GzipLevel)
		if err != nil {
			gw = gzip.NewWriter(nil)
		}
		return gw
	}}},
}

func pickCodec(acceptEncoding string) *codec {
	for _, c := range codecs {
		if strings.Contains(acceptEncoding, c.name) {
			return c
		}
	}
	return nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" ||
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// 1xx / 204 / 304 沒有 body
func isNoBodyStatus(code int) bool {
	return code < 200 || code == http.StatusNoContent || code == http.StatusNotModified
}

type compressResponseWriter struct {
	http.ResponseWriter
	enc      encoder
	disabled bool // 回應沒有 body 時動態取消壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	h := cw.Header()
	h.Del("Content-Length")
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	h := cw.Header()
	h.Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		h.Del("Content-Encoding")
		h.Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Compression 依 Accept-Encoding 以 zstd 或 gzip 壓縮回應；HEAD 與 WebSocket 不處理。
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}
		c := pickCodec(r.Header.Get("Accept-Encoding"))
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", c.name)
		w.Header().Add("Vary", "Accept-Encoding")
		cw := &compressResponseWriter{ResponseWriter: w, enc: c.get(w)}
		defer func() { c.put(cw.enc, cw.disabled) }()

		next.ServeHTTP(cw, r)
	})
}
