// Package store caches computed analytics summaries in Valkey.
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"linkbio-service/config"
)

var (
	dialContext    = (&net.Dialer{}).DialContext
	newBufioReader = bufio.NewReader
	newBufioWriter = bufio.NewWriter
)

// errNil is a RESP null bulk string, i.e. a missing key.
var errNil = errors.New("valkey: nil")

type ValkeyCache struct {
	addr     string
	password string
	db       int
	prefix   string
	timeout  time.Duration
}

// NewValkeyCache pings the server once so a bad address fails at startup.
func NewValkeyCache(ctx context.Context, cfg config.ValkeyConfig) (*ValkeyCache, error) {
	cache := &ValkeyCache{
		addr:     cfg.Addr,
		password: cfg.Password,
		db:       cfg.DB,
		prefix:   cfg.Prefix,
		timeout:  5 * time.Second,
	}

	ctx, cancel := context.WithTimeout(ctx, cache.timeout)
	defer cancel()
	if _, err := cache.do(ctx, "PING"); err != nil {
		return nil, fmt.Errorf("valkey ping failed: %w", err)
	}
	return cache, nil
}

// Get reports found=false for a missing or expired key.
func (v *ValkeyCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := v.do(ctx, "GET", v.key(key))
	if errors.Is(err, errNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (v *ValkeyCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	_, err := v.do(ctx, "SET", v.key(key), value, "EX", strconv.FormatInt(seconds, 10))
	return err
}

func (v *ValkeyCache) key(key string) string {
	return fmt.Sprintf("%s:%s", v.prefix, key)
}

// do opens a connection per command; traffic is a handful of cache reads per
// dashboard load.
func (v *ValkeyCache) do(ctx context.Context, args ...string) (string, error) {
	conn, err := dialContext(ctx, "tcp", v.addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(v.timeout))
	}

	reader := newBufioReader(conn)
	writer := newBufioWriter(conn)

	if v.password != "" {
		if _, err := roundTrip(reader, writer, "AUTH", v.password); err != nil {
			return "", err
		}
	}
	if v.db > 0 {
		if _, err := roundTrip(reader, writer, "SELECT", strconv.Itoa(v.db)); err != nil {
			return "", err
		}
	}
	return roundTrip(reader, writer, args...)
}

func roundTrip(reader *bufio.Reader, writer *bufio.Writer, args ...string) (string, error) {
	if err := writeCommand(writer, args...); err != nil {
		return "", err
	}
	if err := writer.Flush(); err != nil {
		return "", err
	}
	return readResponse(reader)
}

func writeCommand(writer *bufio.Writer, args ...string) error {
	if _, err := writer.WriteString(fmt.Sprintf("*%d\r\n", len(args))); err != nil {
		return err
	}
	for _, arg := range args {
		if _, err := writer.WriteString(fmt.Sprintf("$%d\r\n%s\r\n", len(arg), arg)); err != nil {
			return err
		}
	}
	return nil
}

func readResponse(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty response")
	}

	switch line[0] {
	case '+', ':':
		return line[1:], nil
	case '-':
		return "", fmt.Errorf("valkey error: %s", line[1:])
	case '$':
		length, err := strconv.Atoi(line[1:])
		if err != nil {
			return "", fmt.Errorf("invalid bulk length: %w", err)
		}
		if length == -1 {
			return "", errNil
		}
		buffer := make([]byte, length+2)
		if _, err := io.ReadFull(reader, buffer); err != nil {
			return "", err
		}
		return string(buffer[:length]), nil
	default:
		return "", fmt.Errorf("unexpected response: %s", line)
	}
}
