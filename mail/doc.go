// Package mail delivers one-time passcodes to users.
//
// [Sender] is the only contract the engine depends on. [LogSender] writes the
// code to a logrus logger for local development; [SMTPSender] renders the HTML
// template and submits it to an SMTP relay.
package mail
