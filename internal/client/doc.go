// Package client provides a client for the workflow-execution service API.
// It submits runs, polls their status, hands out file-upload credentials and
// resolves the websocket endpoint that streams live progress.
//
// Every operation returns either a validated payload from package schema or
// an *Error whose Kind tells network failures, bad status codes, undecodable
// bodies and shape mismatches apart.
//
// Example usage:
//
//	c, err := client.New(client.WithAPIToken(token))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := c.RunSync(ctx, schema.RunRequest{
//	    DeploymentID: "dep-123",
//	    Inputs:       map[string]string{"prompt": "a red bicycle"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if out.Incomplete() {
//	    fmt.Printf("run %s still in progress\n", out.ID)
//	}
package client
