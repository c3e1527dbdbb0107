// Package gatewaytest provides fakes and fixtures for testing code that
// talks to LLM providers through the gateway: a recording Sender, canned
// provider envelopes, fake upstream servers and detection text samples.
//
// Example usage:
//
//	func TestChat(t *testing.T) {
//	    sender := gatewaytest.NewMockSender(gatewaytest.Reply(gatewaytest.LocalChat("hi")))
//	    gw, _ := gateway.New(routes, sender)
//	    res, err := gw.Chat(ctx, gateway.ChatRequest{Prompt: gatewaytest.Ptr("hello")})
//	    ...
//	    if sender.Calls() != 1 { ... }
//	}
package gatewaytest
