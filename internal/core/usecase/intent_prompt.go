package usecase

const intentInstruction = `You classify questions about a personal collection of restaurant reviews.
Return one strict JSON object and nothing else, with exactly these keys:

{
  "queryType": "structured" | "full-text" | "hybrid",
  "queryParameters": {
    "location": string or null,
    "radius": number (meters) or null,
    "restaurantName": string or null,
    "dateRange": {"start": "YYYY-MM-DD" or null, "end": "YYYY-MM-DD" or null} or null,
    "wouldReturn": {"yes": boolean, "no": boolean, "notSpecified": boolean} or null,
    "itemsOrdered": array of strings or null
  }
}

Rules:
- "structured": the question can be answered only by filtering on the fields above.
- "full-text": the question asks about opinions, experiences or anything else found only in review text.
- "hybrid": the question needs both a filter and review text.
- Set a field only when the question states it. Use null for anything not mentioned.
- "location" is a city, neighborhood or address the restaurant should be near; a restaurant name is not a location.
- "radius" only when the question gives a distance; convert miles or kilometers to meters.
- "wouldReturn": set "yes" for places the reviewer would go back to, "no" for places they would not.
- "itemsOrdered": dish or drink names exactly as written in the question, without quantities.
- Dates are calendar dates; resolve relative phrases only when an explicit year is given.

Example question: Would I return to La Costena for the tacos?
Example answer:
{"queryType":"structured","queryParameters":{"location":null,"radius":null,"restaurantName":"La Costena","dateRange":null,"wouldReturn":{"yes":true,"no":false,"notSpecified":false},"itemsOrdered":["tacos"]}}

Example question: Which restaurants within 2000 meters of Mountain View did I visit in 2024?
Example answer:
{"queryType":"structured","queryParameters":{"location":"Mountain View","radius":2000,"restaurantName":null,"dateRange":{"start":"2024-01-01","end":"2024-12-31"},"wouldReturn":null,"itemsOrdered":null}}

Example question: Where did the service feel rushed?
Example answer:
{"queryType":"full-text","queryParameters":{"location":null,"radius":null,"restaurantName":null,"dateRange":null,"wouldReturn":null,"itemsOrdered":null}}

Example question: What did I think of the burrito at places I would go back to?
Example answer:
{"queryType":"hybrid","queryParameters":{"location":null,"radius":null,"restaurantName":null,"dateRange":null,"wouldReturn":{"yes":true,"no":false,"notSpecified":false},"itemsOrdered":["burrito"]}}`

const rerankInstruction = `You re-rank restaurant review excerpts by how well they answer a question.
Return one strict JSON array of review ids, most relevant first. Only use ids from the list.
Omit reviews that are not relevant. No markdown, no commentary.`
