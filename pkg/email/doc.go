// Package email sends transactional messages.
//
// EmailSender is implemented by a Postmark client (github.com/mrz1836/postmark)
// and by LogSender, which only logs and is used in development. Bodies are
// rendered from templ components with the templates subpackage.
package email
