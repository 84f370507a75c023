package ebay

import (
	"strconv"
	"strings"
)

// Finding API responses wrap every value in a single element array.

type findingItem struct {
	ItemID    []string `json:"itemId"`
	Title     []string `json:"title"`
	Condition []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
	SellingStatus []struct {
		CurrentPrice []struct {
			Value      []string `json:"__value__"`
			CurrencyID string   `json:"@currencyId"`
		} `json:"currentPrice"`
		SellingState []string `json:"sellingState"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		StartTime   []string `json:"startTime"`
		EndTime     []string `json:"endTime"`
		ListingType []string `json:"listingType"`
	} `json:"listingInfo"`
}

type findingErrorMessage struct {
	Error []struct {
		Message  []string `json:"message"`
		Severity []string `json:"severity"`
	} `json:"error"`
}

type findingResult struct {
	Ack          []string              `json:"ack"`
	ErrorMessage []findingErrorMessage `json:"errorMessage"`
	SearchResult []struct {
		Count string        `json:"@count"`
		Item  []findingItem `json:"item"`
	} `json:"searchResult"`
	PaginationOutput []struct {
		TotalEntries []string `json:"totalEntries"`
	} `json:"paginationOutput"`
}

type completedResponse struct {
	FindCompletedItemsResponse []findingResult `json:"findCompletedItemsResponse"`
}

type keywordsResponse struct {
	FindItemsByKeywordsResponse []findingResult `json:"findItemsByKeywordsResponse"`
}

func (r findingResult) items() []findingItem {
	if len(r.SearchResult) == 0 {
		return nil
	}
	return r.SearchResult[0].Item
}

func (r findingResult) totalEntries() int {
	if len(r.PaginationOutput) == 0 || len(r.PaginationOutput[0].TotalEntries) == 0 {
		return 0
	}
	n, err := strconv.Atoi(r.PaginationOutput[0].TotalEntries[0])
	if err != nil {
		return 0
	}
	return n
}

// err reports a failure acknowledged inside a 200 response.
func (r findingResult) err() error {
	if len(r.Ack) == 0 || !strings.EqualFold(r.Ack[0], "Failure") {
		return nil
	}
	if msg := firstErrorMessage(r.ErrorMessage); msg != "" {
		return classifyFindingError(msg)
	}
	return classifyFindingError("request failed")
}

func firstErrorMessage(messages []findingErrorMessage) string {
	if len(messages) > 0 && len(messages[0].Error) > 0 && len(messages[0].Error[0].Message) > 0 {
		return messages[0].Error[0].Message[0]
	}
	return ""
}
