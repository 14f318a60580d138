// Package api serves the static policy pages required by the platform's app
// review process.
package api

import "net/http"

const termsHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>wagrab - Terms of Service</title></head>
<body>
<h1>Terms of Service</h1>
<p>wagrab downloads publicly available videos on your request and delivers
them to your WhatsApp chat. By sending a link to this service you confirm
that you have the right to download the linked content.</p>
<p>Downloaded files are retained for a limited time and then deleted
automatically. The service is provided as is, without warranty of any
kind.</p>
</body>
</html>
`

const privacyHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>wagrab - Privacy Policy</title></head>
<body>
<h1>Privacy Policy</h1>
<p>wagrab processes the phone number you message from and the links you send,
solely to deliver the requested video back to you. Message identifiers are
kept briefly to suppress duplicate webhook deliveries.</p>
<p>Downloaded videos and delivery records are deleted automatically after the
retention window. No data is sold or shared with third parties beyond the
hosting providers needed to deliver the service.</p>
</body>
</html>
`

func (s *Server) termsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(termsHTML))
}

func (s *Server) privacyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(privacyHTML))
}
