// Package router runs the single control loop of the gateway.
//
// The loop receives one envelope at a time from a transport.Endpoint, decodes
// it into a message.Request, dispatches it to exactly one operation on the
// agent registry or session store and sends exactly one reply. Failures are
// answered with ERROR replies carrying a stable code; the loop keeps running.
//
// START is special: the agent's iteration counter is advanced only after the
// acknowledgment has been sent, so the new session sees the previous value.
package router
