// Package gmail fetches and normalizes messages from the Gmail API.
//
// Raw provider messages are converted into flat Email records by
// ParseMessage. The read, important and attachment flags are never stored
// independently; they are derived from the label list by Email.Derive.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//
//	emails, err := client.Fetch(ctx, 50)
//	if err != nil {
//	    return err
//	}
//
//	if err := client.MarkRead(ctx, emails[0].ID); err != nil {
//	    return err
//	}
package gmail
