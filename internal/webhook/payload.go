package webhook

// Envelope mirrors the WhatsApp Cloud API webhook payload, reduced to the
// fields this service consumes:
//
//	{
//	  "entry": [{
//	    "changes": [{
//	      "value": {
//	        "messages": [{
//	          "from": "+15551234567",
//	          "text": { "body": "Hello!" }
//	        }]
//	      }
//	    }]
//	  }]
//	}
type Envelope struct {
	Entry []Entry `json:"entry"`
}

// Entry is one webhook entry.
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change is one change notification inside an entry.
type Change struct {
	Value Value `json:"value"`
}

// Value carries the messages of a change, if any.
type Value struct {
	Messages []Message `json:"messages"`
}

// Message is one inbound message.
type Message struct {
	From string `json:"from"`
	Text Text   `json:"text"`
}

// Text is the text body of a message.
type Text struct {
	Body string `json:"body"`
}

// InboundMessages flattens the envelope into (sender, text) pairs,
// dropping entries without both fields.
func (e *Envelope) InboundMessages() []Message {
	var msgs []Message
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.From == "" || msg.Text.Body == "" {
					continue
				}
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs
}
