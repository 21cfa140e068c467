/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoom     = errors.New("invalid room")
	ErrInvalidCategory = errors.New("category does not exist")
	ErrCatalogClosed   = errors.New("catalog is closed")
)

func setupLogging(cfg *Config) {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: logDate}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// invalidf builds a validation error that the REST layer reports as 400.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRoom, fmt.Sprintf(format, args...))
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
