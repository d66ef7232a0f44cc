package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchToolDef = mcp.NewTool("card_search",
	mcp.WithDescription("Search the card service by card code (e.g. \"base1-4\") or by name. "+
		"A code yields one card; a name may yield several candidates to choose from with card_select. "+
		"A search that finds nothing clears the view and reports a notice."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Card code or card name"),
	),
)

var selectToolDef = mcp.NewTool("card_select",
	mcp.WithDescription("Pick one card from the current candidates. Pass exactly one of index or id."),
	mcp.WithNumber("index",
		mcp.Description("Zero-based position in the candidates list"),
	),
	mcp.WithString("id",
		mcp.Description("Card ID of a candidate"),
	),
)

var currentToolDef = mcp.NewTool("card_current",
	mcp.WithDescription("Show the current view: empty, a list of candidates, or one resolved card."),
)

var resetToolDef = mcp.NewTool("card_reset",
	mcp.WithDescription("Clear the current view and abandon any search still running."),
)

var saveToolDef = mcp.NewTool("card_save",
	mcp.WithDescription("Save the currently selected card to the collection. Saving a card already in the collection is a no-op."),
	mcp.WithString("id",
		mcp.Description("Optional guard: must match the selected card's ID"),
	),
)

var savedToolDef = mcp.NewTool("card_saved",
	mcp.WithDescription("List saved cards in the order they were saved."),
	mcp.WithString("name_prefix",
		mcp.Description("Only cards whose name starts with this (case-insensitive)"),
	),
	mcp.WithString("supertype",
		mcp.Description("Only cards of this supertype (Pokémon, Trainer, Energy)"),
	),
	mcp.WithString("rarity",
		mcp.Description("Only cards of this rarity"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max items to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip"),
	),
)

var exportToolDef = mcp.NewTool("card_export",
	mcp.WithDescription("Write the saved collection to a JSON file. Defaults to ~/.binder/exports/."),
	mcp.WithString("path",
		mcp.Description("Destination .json file"),
	),
)

var saveCodesToolDef = mcp.NewTool("card_save_codes",
	mcp.WithDescription("Look up several card codes and save every card found, in argument order. "+
		"Codes that fail are reported per code without stopping the rest."),
	mcp.WithArray("codes",
		mcp.Required(),
		mcp.Description("Card codes such as \"base1-4\""),
		mcp.WithStringItems(),
	),
)
