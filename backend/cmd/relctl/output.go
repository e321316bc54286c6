package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"daydei-social/backend/internal/state"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printPairs(w io.Writer, pairs []state.InconsistentPair) {
	if len(pairs) == 0 {
		fmt.Fprintln(w, "no inconsistent pairs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER_A\tUSER_B")
	for _, p := range pairs {
		fmt.Fprintf(tw, "%s\t%s\n", p.UserA, p.UserB)
	}
	_ = tw.Flush()
}

func printUsers(w io.Writer, title string, users []state.UserView) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(users))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, u := range users {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", u.ID, u.Email, u.Nickname)
	}
	_ = tw.Flush()
}

func printCandidates(w io.Writer, candidates []state.Candidate) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNICKNAME\tCATEGORIES\tFRIEND\tSUBSCRIBED\tPENDING\tFRIENDS\tSUBSCRIBERS")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%s\t%d\t%d\n",
			c.User.ID,
			c.User.Nickname,
			joinCategories(c.User.Categories),
			c.IsFriend,
			c.IsSubscribed,
			c.PendingDirection,
			c.FriendCount,
			c.SubscriberCount,
		)
	}
	_ = tw.Flush()
}

func joinCategories(cs []state.Category) string {
	return strings.Join(categoryTokens(cs), ",")
}
