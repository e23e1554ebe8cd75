// Package svclaunch starts the services of a multi-service sample server.
//
// A services root holds one directory per service. Every directory whose
// name does not start with "." and which contains a startup.sh has that
// script run once, with the service directory as working directory:
//
//	root/
//	    websocket-chat/startup.sh    started
//	    webrtc-capturestill/         skipped, no startup.sh
//	    .git/startup.sh              ignored, hidden
//	    README.md                    ignored, not a directory
//
// The Launcher type does the work:
//
//	l, err := svclaunch.New("/srv/samples/s")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := l.Run(context.Background())
//
// For every service it prints "Starting service: <path>" to standard
// output and spawns the script with /bin/sh. It returns without waiting
// for anything it spawned. The launcher is not a supervisor: it never
// restarts, signals or waits on its children.
//
// # Identity
//
// By default children inherit the launcher's privileges and environment.
// WithRunAs(Account("www")) resolves the account once and starts every
// child as that user, with HOME, LOGNAME, PWD and USER set to match.
//
// # Spawn records
//
// A Recorder receives one SpawnRecord (service, PID, start time) per
// process. FileRecorder keeps them as JSON lines for tooling that wants to
// stop or restart services later.
//
// # Watching
//
// Watch runs the initial pass and then starts services whose directory or
// startup.sh appears later, each at most once, until its context ends.
package svclaunch
