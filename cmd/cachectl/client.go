package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
	Out       io.Writer
}

// apiError es el cuerpo de error de la API.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("status=%d", e.Status)
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.Detail != "" {
		return msg + ": " + e.Detail
	}
	if e.Message != "" {
		return msg + ": " + e.Message
	}
	return msg
}

// do ejecuta la request y decodifica la respuesta en out (si no es nil).
// Respuestas no-2xx se devuelven como *apiError. Retorna el header X-Cache-Mode.
func (c *client) do(ctx context.Context, method, path string, in, out any) (string, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return "", err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return "", apiErr
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header.Get("X-Cache-Mode"), nil
}

// printJSON imprime v indentado.
func (c *client) printJSON(v any) error {
	p, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, string(p))
	return err
}

func (c *client) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// emit imprime v como JSON o, en modo text, con la función text.
func (c *client) emit(v any, mode string, text func()) error {
	if c.OutFormat == "json" {
		return c.printJSON(v)
	}
	text()
	if mode != "" {
		c.printf("(cache mode: %s)\n", mode)
	}
	return nil
}

func escape(s string) string { return url.PathEscape(s) }
