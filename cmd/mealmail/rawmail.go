package main

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"mealmail/internal/domain"
)

// readRawEmail turns a saved email file into a RawEmail. RFC 822 files
// (.eml exports) have their headers and MIME parts decoded; anything else
// is taken as the body verbatim.
func readRawEmail(data []byte) domain.RawEmail {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil || (msg.Header.Get("Subject") == "" && msg.Header.Get("From") == "") {
		return domain.RawEmail{Body: string(data)}
	}

	dec := &mime.WordDecoder{CharsetReader: charsetReader}
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}
	sender := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(sender); err == nil {
		sender = addr.Address
	}

	html, plain := decodePart(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	body := html
	if body == "" {
		body = plain
	}
	return domain.RawEmail{Subject: subject, Sender: sender, Body: body}
}

// decodePart returns the first text/html and text/plain bodies found in a
// possibly nested MIME entity.
func decodePart(contentType, encoding string, r io.Reader) (html, plain string) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			h, p := decodePart(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if html == "" {
				html = h
			}
			if plain == "" {
				plain = p
			}
		}
		return html, plain
	}

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	if cs := params["charset"]; cs != "" {
		if cr, err := charsetReader(cs, r); err == nil {
			r = cr
		}
	}

	raw, err := io.ReadAll(r)
	if err != nil && len(raw) == 0 {
		return "", ""
	}
	switch mediaType {
	case "text/html":
		return string(raw), ""
	case "text/plain":
		return "", string(raw)
	}
	return "", ""
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
