package router

import "strings"

const (
	replyPlayMusic   = "I'd play music for you, but I can't reach your local music library from here. Try asking for a YouTube song instead!"
	replyHowAreYou   = "I am fine! What about you?"
	replyBye         = "Goodbye! Have a nice day!"
	replyPopulation  = "I don't have current population data. Try looking that up on Google."
	replyWeather     = "I don't have access to current weather data. You might want to check a weather website or app for that information."
	replyWikiFailure = "I couldn't find information about that on Wikipedia. Could you try a different search term?"
	replyCalcFailure = "I couldn't calculate that. Please provide a clearer mathematical expression."
)

type capital struct {
	country string
	city    string
}

// capitals is checked in order; the first country named as a whole word in
// the query wins.
var capitals = []capital{
	{"usa", "Washington D.C."},
	{"united states", "Washington D.C."},
	{"uk", "London"},
	{"united kingdom", "London"},
	{"france", "Paris"},
	{"germany", "Berlin"},
	{"japan", "Tokyo"},
	{"china", "Beijing"},
	{"india", "New Delhi"},
	{"australia", "Canberra"},
	{"canada", "Ottawa"},
	{"brazil", "Brasília"},
	{"mexico", "Mexico City"},
	{"russia", "Moscow"},
}

// lookupCapital returns the reply for a "capital of" query, or false when
// the country is not in the table.
func lookupCapital(query string) (string, bool) {
	country := strings.Replace(query, "capital of", "", 1)
	for _, filler := range []string{"what is the", "what's the", "tell me the"} {
		country = strings.Replace(country, filler, "", 1)
	}
	country = strings.Trim(strings.TrimSpace(country), "?!.")
	padded := " " + country + " "
	for _, c := range capitals {
		if strings.Contains(padded, " "+c.country+" ") {
			return "The capital of " + country + " is " + c.city + ".", true
		}
	}
	return "", false
}

// calcExpression strips the command words around an arithmetic expression.
func calcExpression(query string) string {
	expr := strings.Replace(query, "calculate", "", 1)
	expr = strings.Replace(expr, "what is", "", 1)
	expr = strings.TrimSpace(expr)
	return strings.TrimSpace(strings.TrimRight(expr, "?=!"))
}

// searchTerm removes the first occurrence of word and trims the rest.
func searchTerm(query, word string) string {
	return strings.TrimSpace(strings.Replace(query, word, "", 1))
}
