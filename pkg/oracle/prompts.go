package oracle

import (
	"encoding/json"
	"fmt"
)

const extractFieldsPrompt = `You are a product data extraction assistant.

Analyze the product title below and extract its structured attributes.

Your output must include:
1. "brand": brand or manufacturer.
2. "model": model name, without brand and without attributes.
3. "category": general category such as Smartphone, Laptop, Monitor, Lotion or Headphones.
4. "attributes": every other detail in the title as "name": "value" pairs.

Product title:
%q

Return ONLY a valid JSON object:
{
  "brand": "...",
  "model": "...",
  "category": "...",
  "attributes": {}
}

No explanations. Use only English.`

const matchCandidatesPrompt = `You are a product comparison agent.

You are given a new product and a list of existing products that share its brand and model.
For each existing product decide whether the new product is effectively the same product.

Return a JSON array with one object per existing product:
- "matched_id": the id of the existing product
- "match": true or false

New product:
%s

Existing products:
%s

Only return the JSON.`

const discoverVariationsPrompt = `You are a product research assistant.

Find all real-world variations of this product: %s %s

A variation is a version of the same product that differs in an attribute that significantly
affects its price or performance, such as storage size, RAM, processor, screen size or included
accessories. Do not treat color, minor design tweaks or packaging as variations.
Return the smallest set of meaningful variations.

Return a JSON array of objects with two keys:
- "name": the title of the variation, including brand
- "variation": the part that distinguishes this variation from the others

Only return the JSON. Respond in English.`

const selectOffersPrompt = `You are a price comparison assistant.

The product is: %q

Below are listings grouped by shop domain. For every domain pick at most one listing, following these rules:
- The listing must be the same product and the same variation. Skip the domain if none is.
- Prefer the lowest price. On a tie either listing is fine.
- If two listings are nearly identical in description but one price is notably lower, prefer the
  higher price; the cheaper one is usually refurbished or missing parts.
- Report prices in %s.
- Copy "item_page_url" exactly as given.

Listings:
%s

Return a JSON array with one object per chosen listing:
{"domain": "...", "item": "...", "item_page_url": "...", "item_current_price": "...", "price_currency": "..."}

Only return the JSON.`

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
