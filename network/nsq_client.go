package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// NSQClient publishes messages to nsqd over its HTTP interface.
type NSQClient struct {
	URL string
}

// NewNSQClient returns a client that publishes to the nsqd at the
// given base URL, e.g. "http://localhost:4151". The URL is
// typically available through Config.NsqURL.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{URL: url}
}

// Enqueue posts one message to the named topic. For verification
// work, the message body is the file identifier
// "ownerID/fileID".
func (client *NSQClient) Enqueue(topic, data string) error {
	url := fmt.Sprintf("%s/pub?topic=%s", client.URL, topic)
	resp, err := http.Post(url, "text/plain", bytes.NewBufferString(data))
	if err != nil {
		return fmt.Errorf("nsqd returned an error when queueing data: %v", err)
	}
	if resp == nil {
		return fmt.Errorf("no response from nsqd at %s, is it running", url)
	}

	// nsqd replies with a simple OK. Read the body anyway, or the
	// connection hangs open.
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading nsqd response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nsqd returned status code %d, body: %s",
			resp.StatusCode, string(body))
	}
	return nil
}
