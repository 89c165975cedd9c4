package relay

// Room is the set of clients that joined one room id, in join order.
type Room struct {
	ID      string
	Members []*Client
}

func (r *Room) has(c *Client) bool {
	for _, m := range r.Members {
		if m == c {
			return true
		}
	}
	return false
}

func (r *Room) remove(c *Client) {
	for i, m := range r.Members {
		if m == c {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return
		}
	}
}
