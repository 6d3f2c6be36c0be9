// Package zapline provides a Go client for the zapline campaign
// dispatch API.
//
//	client := zapline.New("http://localhost:8080", zapline.WithAPIKey("secret"))
//
//	c, _ := client.CreateCampaign(ctx, "tenant-1", zapline.CreateCampaignInput{
//	    Message:       "Oferta de agosto!",
//	    PacingProfile: "safe",
//	    ListID:        "vip",
//	})
//	res, _ := client.Send(ctx, "tenant-1", c.ID)
//	fmt.Println(res.Summary.Enqueued, res.Campaign.Status)
//
// Dispatch calls are idempotent per recipient: re-sending a campaign
// never re-enqueues contacts that were already scheduled or delivered.
package zapline
